package webhook

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Canonicalize serializes a payload into a deterministic byte sequence for
// signing. Keys are sorted lexicographically at every nesting level, so two
// payloads with the same key/value sets produce identical bytes regardless
// of the order the provider sent them in.
func Canonicalize(payload map[string]any) ([]byte, error) {
	var b bytes.Buffer
	if err := writeCanonical(&b, payload); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func writeCanonical(b *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(kb)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
