package feedsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type feedClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newFeedClient() (*feedClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("RETAIL_FEED_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("RETAIL_FEED_BASE_URL is empty")
	}
	apiKey := strings.TrimSpace(os.Getenv("RETAIL_FEED_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("retail feed api key is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("RETAIL_FEED_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("RETAIL_FEED_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &feedClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type feedListResponse struct {
	Data       []json.RawMessage `json:"data"`
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    *bool             `json:"has_more"`
}

func (c *feedClient) getList(ctx context.Context, path string, params url.Values) (feedListResponse, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return feedListResponse{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return feedListResponse{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return feedListResponse{}, fmt.Errorf("retail feed api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed feedListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return feedListResponse{}, err
	}
	return parsed, nil
}

// fetchAll walks the cursor until the feed reports no more pages.
func (c *feedClient) fetchAll(ctx context.Context, path string, date string, brand string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	cursor := ""
	for {
		params := url.Values{}
		params.Set("date", date)
		params.Set("brand", brand)
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		resp, err := c.getList(ctx, path, params)
		if err != nil {
			return out, err
		}
		items := resp.Data
		if len(items) == 0 {
			items = resp.Items
		}
		out = append(out, items...)
		if resp.NextCursor == "" || (resp.HasMore != nil && !*resp.HasMore) {
			return out, nil
		}
		cursor = resp.NextCursor
	}
}
