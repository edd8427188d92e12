// Package censusapi is a small client for the Census Bureau data API
// (api.census.gov), which answers every query with a JSON array of string
// rows whose first row is the header.
package censusapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/popgrid/internal/resilience"
)

// DefaultBaseURL is the root of the Census data API.
const DefaultBaseURL = "https://api.census.gov/data"

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = eris.New("censusapi: missing API key (set CENSUS_API_KEY)")

// Client queries the Census data API.
type Client interface {
	// Get runs a query and returns the decoded table.
	Get(ctx context.Context, q Query) (*Table, error)
}

// Query selects variables from a dataset, e.g. the 2021 population
// estimates: Year 2021, Dataset "pep/population",
// Get [DENSITY_2021 POP_2021 NAME STATE], For "region:*".
type Query struct {
	Year    int
	Dataset string
	Get     []string
	For     string
	In      string
}

// PopulationEstimates is the regional population query of the study.
func PopulationEstimates(year int) Query {
	y := strconv.Itoa(year)
	return Query{
		Year:    year,
		Dataset: "pep/population",
		Get:     []string{"DENSITY_" + y, "POP_" + y, "NAME", "STATE"},
		For:     "region:*",
	}
}

// Option configures the client.
type Option func(*client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBackoff sets the retry policy for transient failures.
func WithBackoff(b resilience.Backoff) Option {
	return func(c *client) { c.backoff = b }
}

type client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    resilience.Backoff
}

// NewClient creates a client authenticated with key.
func NewClient(key string, opts ...Option) Client {
	c := &client{
		key:        key,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		backoff:    resilience.DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoff.OnRetry == nil {
		c.backoff.OnRetry = resilience.LogRetry("censusapi")
	}
	return c
}

// URL builds the request URL for q, including the key.
func (c *client) URL(q Query) (string, error) {
	if q.Year <= 0 || q.Dataset == "" || len(q.Get) == 0 {
		return "", eris.New("censusapi: query needs a year, a dataset and at least one variable")
	}
	params := url.Values{"get": {strings.Join(q.Get, ",")}}
	if q.For != "" {
		params.Set("for", q.For)
	}
	if q.In != "" {
		params.Set("in", q.In)
	}
	params.Set("key", c.key)
	return c.baseURL + "/" + strconv.Itoa(q.Year) + "/" + strings.Trim(q.Dataset, "/") + "?" + params.Encode(), nil
}

func (c *client) Get(ctx context.Context, q Query) (*Table, error) {
	if c.key == "" {
		return nil, ErrMissingAPIKey
	}
	reqURL, err := c.URL(q)
	if err != nil {
		return nil, err
	}

	return resilience.DoVal(ctx, c.backoff, func(ctx context.Context) (*Table, error) {
		return c.fetch(ctx, reqURL)
	})
}

func (c *client) fetch(ctx context.Context, reqURL string) (*Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "censusapi: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "censusapi: build request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "censusapi: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "censusapi: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("censusapi: returned status %d: %s", resp.StatusCode, snippet(body))
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.Transient(err, resp.StatusCode)
		}
		return nil, err
	}

	return decodeTable(body)
}

func decodeTable(body []byte) (*Table, error) {
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		// An invalid key is answered with 200 and an HTML page.
		return nil, eris.Wrapf(err, "censusapi: parse response: %s", snippet(body))
	}
	if len(raw) == 0 {
		return nil, eris.New("censusapi: empty response")
	}

	t := &Table{Header: toStrings(raw[0])}
	for _, r := range raw[1:] {
		t.Rows = append(t.Rows, toStrings(r))
	}
	return t, nil
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			b, _ := json.Marshal(x)
			out[i] = string(b)
		}
	}
	return out
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
