package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

// ErrMalformedResponse marks a queue reply that was reachable but missing
// every essential field; the loop sleeps longer on it than on a plain
// connection error.
var ErrMalformedResponse = errors.New("queue response is missing essential fields")

// Client talks to the collaborator store's queue endpoints.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type pullResponse struct {
	Data *enrich.Resource `json:"data"`
	Info *string          `json:"info"`
}

// PullTask asks for the most urgent unleased task. Exactly one of the
// returned resource and info string is set on success.
func (c *Client) PullTask(ctx context.Context) (*enrich.Resource, string, error) {
	body, err := c.post(ctx, "/api/v1/most_urgent_unstarted_enrichment_task/", []byte("{}"))
	if err != nil {
		return nil, "", err
	}
	var decoded pullResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, "", ErrMalformedResponse
	}
	switch {
	case decoded.Data != nil:
		return decoded.Data, "", nil
	case decoded.Info != nil:
		return nil, *decoded.Info, nil
	default:
		return nil, "", ErrMalformedResponse
	}
}

type pushRequest struct {
	URL   string            `json:"url"`
	Data  enrich.Enrichment `json:"data"`
	Error *string           `json:"error"`
}

// PushEnrichment reports a finished (or failed) enrichment back to the
// queue. errMessage nil means success.
func (c *Client) PushEnrichment(ctx context.Context, url string, data enrich.Enrichment, errMessage *string) error {
	payload, err := json.Marshal(pushRequest{URL: url, Data: data, Error: errMessage})
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "/api/v1/ingest_wikichunk_enrichment/", payload)
	return err
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("queue returned status %d", resp.StatusCode)
	}
	return body, nil
}
