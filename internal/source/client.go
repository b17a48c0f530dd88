package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultPageSize is the largest page the records endpoint returns.
	DefaultPageSize = 500

	// maxOffset is the largest offset the records endpoint accepts.
	maxOffset = 10000

	defaultTimeout = 30 * time.Second
)

// Credentials authenticate against a kintone domain. Basic auth is only sent
// when BasicAuthUsername is set.
type Credentials struct {
	EndpointURL       string
	Username          string
	Password          string
	BasicAuthUsername string
	BasicAuthPassword string
}

// Client queries one kintone app over the REST API.
type Client struct {
	endpoint string
	appID    string
	fields   FieldCodes
	pageSize int
	http     *http.Client

	passwordAuth string
	basicAuth    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithPageSize sets the number of records requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= DefaultPageSize {
			c.pageSize = n
		}
	}
}

// NewClient creates a Client for app appID reading the given field codes.
func NewClient(creds Credentials, appID string, fields FieldCodes, opts ...Option) (*Client, error) {
	if creds.EndpointURL == "" {
		return nil, fmt.Errorf("endpoint URL cannot be empty")
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}

	c := &Client{
		endpoint:     strings.TrimRight(creds.EndpointURL, "/"),
		appID:        appID,
		fields:       fields.WithDefaults(),
		pageSize:     DefaultPageSize,
		http:         &http.Client{Timeout: defaultTimeout},
		passwordAuth: base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password)),
	}
	if creds.BasicAuthUsername != "" {
		c.basicAuth = base64.StdEncoding.EncodeToString([]byte(creds.BasicAuthUsername + ":" + creds.BasicAuthPassword))
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChangedSinceQuery builds the query selecting records created or updated at
// or after since, oldest record id first.
func ChangedSinceQuery(fields FieldCodes, since time.Time) string {
	fields = fields.WithDefaults()
	ts := since.Format(time.RFC3339)
	return fmt.Sprintf(`%s >= "%s" or %s >= "%s" order by %s asc`,
		fields.CreatedAt, ts, fields.UpdatedAt, ts, fields.RecordID)
}

// recordsResponse is the body of GET /k/v1/records.json.
type recordsResponse struct {
	Records []Record `json:"records"`
}

// errorResponse is the body kintone sends with a non-200 status.
type errorResponse struct {
	Code    string `json:"code"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// FetchChangedSince returns every record created or updated at or after
// since, reading page by page until a short page.
func (c *Client) FetchChangedSince(ctx context.Context, since time.Time) ([]Record, error) {
	query := ChangedSinceQuery(c.fields, since)

	var all []Record
	for offset := 0; ; offset += c.pageSize {
		if offset > maxOffset {
			return nil, fmt.Errorf("more than %d records match %q", maxOffset, query)
		}

		page, err := c.getRecords(ctx, fmt.Sprintf("%s limit %d offset %d", query, c.pageSize, offset))
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

func (c *Client) getRecords(ctx context.Context, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("app", c.appID)
	params.Set("query", query)
	endpoint := c.endpoint + "/k/v1/records.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Cybozu-Authorization", c.passwordAuth)
	if c.basicAuth != "" {
		req.Header.Set("Authorization", "Basic "+c.basicAuth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s/k/v1/records.json: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var kerr errorResponse
		if json.Unmarshal(body, &kerr) == nil && kerr.Code != "" {
			return nil, fmt.Errorf("HTTP %d from records API: %s: %s (id %s)", resp.StatusCode, kerr.Code, kerr.Message, kerr.ID)
		}
		return nil, fmt.Errorf("HTTP %d from records API: %s", resp.StatusCode, string(body))
	}

	var result recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode records response: %w", err)
	}
	return result.Records, nil
}
