package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkorir/tradebase/pkg/types"
	"github.com/rs/zerolog/log"
)

type PaddleClient struct {
	httpClient *http.Client
	vendorID   string
	apiKey     string
	baseURL    string
}

func NewPaddleClient(vendorID, apiKey, baseURL string) *PaddleClient {
	return &PaddleClient{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
		vendorID: vendorID,
		apiKey:   apiKey,
		baseURL:  baseURL,
	}
}

// GeneratePayLink asks Paddle for a hosted checkout URL for one course
// purchase. The passthrough carries the course id back on the webhook.
func (c *PaddleClient) GeneratePayLink(ctx context.Context, req *types.GeneratePayLinkRequest) (*types.GeneratePayLinkResponse, error) {
	req.VendorID = c.vendorID
	req.VendorAuthCode = c.apiKey

	respBody, err := c.doRequest(ctx, http.MethodPost, "/product/generate_pay_link", req)
	if err != nil {
		return nil, err
	}

	var resp types.GeneratePayLinkResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("paddle error: %s", resp.Error.Message)
	}

	return &resp, nil
}

func (c *PaddleClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal request body")
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		log.Error().Err(err).
			Str("method", method).
			Str("url", url).
			Int64("duration_ms", duration).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).
			Str("method", method).
			Str("url", url).
			Int64("duration_ms", duration).
			Msg("Failed to read response body")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("url", url).
			Int64("duration_ms", duration).
			Str("body", string(respBody)).
			Msg("Paddle API error response")
		return nil, fmt.Errorf("paddle error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	log.Info().
		Int("status", resp.StatusCode).
		Str("method", method).
		Str("url", url).
		Int64("duration_ms", duration).
		Msg("Paddle API request successful")

	return respBody, nil
}
