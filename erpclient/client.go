package erpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client submits invoice and stock-movement documents to the external ERP.
// It is the single shared capability consumed by both the dispatch and
// warehouse trackers.
type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

func NewClient() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("ERP_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("ERP_API_BASE_URL is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("ERP_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(os.Getenv("ERP_API_KEY")),
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// APIError is a non-2xx ERP response with its raw body, kept verbatim for
// the audit trail and for duplicate-key reclassification.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erp api error %d: %s", e.StatusCode, e.Body)
}

// IsDuplicateKey reports whether the ERP rejected the document because it
// already exists upstream. Business interpretation: success.
func IsDuplicateKey(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	body := strings.ToLower(apiErr.Body)
	return strings.Contains(body, "duplicate entry") ||
		strings.Contains(body, "duplicate key") ||
		strings.Contains(body, "ora-00001")
}

func (c *Client) SubmitInvoice(ctx context.Context, payload InvoicePayload) ([]byte, error) {
	return c.post(ctx, "/v1/invoices", payload)
}

func (c *Client) SubmitStockTransfer(ctx context.Context, payload TransferPayload) ([]byte, error) {
	return c.post(ctx, "/v1/stock-transfers", payload)
}

func (c *Client) SubmitStockMovement(ctx context.Context, payload MovementPayload) ([]byte, error) {
	return c.post(ctx, "/v1/stock-movements", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
