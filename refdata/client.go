package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client talks to the external classification service. Lookup misses are
// returned as (nil, nil); callers treat nil as "unresolved".
type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

func NewClient() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("REFDATA_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("REFDATA_API_BASE_URL is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("REFDATA_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	timeout := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("REFDATA_TIMEOUT_SECONDS")); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(os.Getenv("REFDATA_API_KEY")),
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// LookupProduct tries the primary classification lookup, then the legacy
// alias scheme on not-found. Both missing yields (nil, nil).
func (c *Client) LookupProduct(ctx context.Context, itemCode string) (*Product, error) {
	product, err := c.getProduct(ctx, "/v1/products/"+url.PathEscape(itemCode))
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}
	return c.getProduct(ctx, "/v1/products/legacy/"+url.PathEscape(itemCode))
}

func (c *Client) getProduct(ctx context.Context, path string) (*Product, error) {
	body, found, err := c.get(ctx, path)
	if err != nil || !found {
		return nil, err
	}
	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// LookupDepartment resolves department metadata for a branch code. Missing
// branches are (nil, nil), same contract as products.
func (c *Client) LookupDepartment(ctx context.Context, branchCode string) (*Department, error) {
	body, found, err := c.get(ctx, "/v1/departments/"+url.PathEscape(branchCode))
	if err != nil || !found {
		return nil, err
	}
	var dept Department
	if err := json.Unmarshal(body, &dept); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, err
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("refdata api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, true, nil
}
