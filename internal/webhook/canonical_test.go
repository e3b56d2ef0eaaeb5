package webhook

import (
	"bytes"
	"encoding/json"
	"testing"
)

// decodePayload builds a payload from raw JSON so tests can control the
// textual key order of the input document.
func decodePayload(t *testing.T, doc string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("failed to decode test payload: %v", err)
	}
	return m
}

func TestCanonicalize(t *testing.T) {
	t.Run("is independent of input key order", func(t *testing.T) {
		a := decodePayload(t, `{"alert_name":"payment_succeeded","email":"buyer@example.com","amount":"49.99","currency":"USD","order_id":"ORDER12345"}`)
		b := decodePayload(t, `{"order_id":"ORDER12345","currency":"USD","amount":"49.99","email":"buyer@example.com","alert_name":"payment_succeeded"}`)

		ca, err := Canonicalize(a)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		cb, err := Canonicalize(b)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !bytes.Equal(ca, cb) {
			t.Errorf("canonical bytes differ:\n%s\n%s", ca, cb)
		}
	})

	t.Run("sorts keys lexicographically", func(t *testing.T) {
		payload := decodePayload(t, `{"b":"2","a":"1","c":"3"}`)

		got, err := Canonicalize(payload)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		want := `{"a":"1","b":"2","c":"3"}`
		if string(got) != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("recurses into nested objects and arrays", func(t *testing.T) {
		a := decodePayload(t, `{"outer":{"z":"last","a":"first"},"items":[{"y":2,"x":1}]}`)
		b := decodePayload(t, `{"items":[{"x":1,"y":2}],"outer":{"a":"first","z":"last"}}`)

		ca, _ := Canonicalize(a)
		cb, _ := Canonicalize(b)
		if !bytes.Equal(ca, cb) {
			t.Errorf("nested canonical bytes differ:\n%s\n%s", ca, cb)
		}

		want := `{"items":[{"x":1,"y":2}],"outer":{"a":"first","z":"last"}}`
		if string(ca) != want {
			t.Errorf("expected %s, got %s", want, ca)
		}
	})

	t.Run("preserves array element order", func(t *testing.T) {
		payload := decodePayload(t, `{"items":["b","a"]}`)

		got, _ := Canonicalize(payload)
		want := `{"items":["b","a"]}`
		if string(got) != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("handles numbers booleans and null", func(t *testing.T) {
		payload := decodePayload(t, `{"amount":49.99,"refunded":false,"note":null}`)

		got, err := Canonicalize(payload)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		want := `{"amount":49.99,"note":null,"refunded":false}`
		if string(got) != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})
}
