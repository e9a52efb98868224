package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches semantic vectors from the external embedding service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an embedding service client. An empty baseURL yields a
// client that reports every function as unavailable.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embeddingResponse struct {
	FunctionID string    `json:"functionId"`
	Vector     []float64 `json:"vector"`
}

type embeddingError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) Embedding(ctx context.Context, functionID string) ([]float64, error) {
	if c.baseURL == "" {
		return nil, ErrUnavailable
	}

	url := fmt.Sprintf("%s/api/v1/embeddings/%s", c.baseURL, functionID)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		var errResp embeddingError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s - %s", errResp.Error, errResp.Message)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return embResp.Vector, nil
}
