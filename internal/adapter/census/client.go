// Package census implements domain.TableFetcher against the Census Bureau
// Data API (ACS 5-Year Estimates).
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/policymetrics/talent-flow-etl/internal/observability"
)

// Client fetches ACS detail tables from api.census.gov.
type Client struct {
	apiKey     string
	year       int
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Census Data API client for one ACS 5-year vintage.
func NewClient(apiKey string, year int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		year:   year,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.census.gov/data",
		metrics: metrics,
		logger:  logger,
	}
}

// SetBaseURL overrides the API root, e.g. to point tests at a local server.
func (c *Client) SetBaseURL(base string) { c.baseURL = base }

// row holds one state's cells keyed by variable name. Cells are nil when the
// API returned null.
type row map[string]*string

// query fetches the given variables for every state and returns the rows
// keyed by FIPS code. The table label is used for metrics only.
func (c *Client) query(ctx context.Context, table string, variables []string) (map[string]row, error) {
	params := url.Values{
		"get": {strings.Join(variables, ",")},
		"for": {"state:*"},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/%d/acs/acs5?%s", c.baseURL, c.year, params.Encode())

	start := time.Now()
	rows, err := c.doRequest(ctx, fullURL)
	c.metrics.FetchDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	c.metrics.FetchRequests.WithLabelValues(table, "success").Inc()

	keyed, err := keyByFIPS(rows, variables)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	c.logger.Debug("census table fetched", "table", table, "states", len(keyed))
	return keyed, nil
}

// doRequest performs the HTTP round trip and decodes the Census
// array-of-arrays payload: a header row of variable names followed by one
// row of string (or null) cells per state.
func (c *Client) doRequest(ctx context.Context, fullURL string) ([][]*string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("census API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("census API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload [][]*string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("empty response: %d rows", len(payload))
	}
	return payload, nil
}

// keyByFIPS converts the positional payload into per-state rows keyed by the
// trailing "state" column the API appends to every for=state query.
func keyByFIPS(payload [][]*string, variables []string) (map[string]row, error) {
	header := payload[0]
	index := make(map[string]int, len(header))
	for i, cell := range header {
		if cell != nil {
			index[*cell] = i
		}
	}

	for _, v := range variables {
		if _, ok := index[v]; !ok {
			return nil, fmt.Errorf("variable %s missing from response header", v)
		}
	}
	fipsIdx, ok := index["state"]
	if !ok {
		return nil, fmt.Errorf("state column missing from response header")
	}

	result := make(map[string]row, len(payload)-1)
	for _, cells := range payload[1:] {
		if fipsIdx >= len(cells) || cells[fipsIdx] == nil {
			return nil, fmt.Errorf("data row missing state FIPS code")
		}
		r := make(row, len(variables))
		for _, v := range variables {
			i := index[v]
			if i < len(cells) {
				r[v] = cells[i]
			}
		}
		result[*cells[fipsIdx]] = r
	}
	return result, nil
}

// suppressionFloor is the least-negative of the ACS sentinel family
// (-666666666 "suppressed", -888888888 "not applicable", -999999999
// "unreliable"). Any negative estimate is nonsensical for these tables, so
// the parsers treat every negative cell as absent, not just exact sentinels.
const suppressionFloor = 0

// parseCount parses a required non-negative count cell. Absent, negative,
// or malformed cells return ok=false, which excludes the state from the
// fetched table (and therefore from the join).
func parseCount(r row, variable string) (int64, bool) {
	cell := r[variable]
	if cell == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*cell), 64)
	if err != nil || v < suppressionFloor {
		return 0, false
	}
	return int64(v), true
}

// parseOptional parses an optional numeric cell, returning nil for absent,
// negative-sentinel, or malformed values.
func parseOptional(r row, variable string) *float64 {
	cell := r[variable]
	if cell == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*cell), 64)
	if err != nil || v < suppressionFloor {
		return nil
	}
	return &v
}

// parseName returns the NAME cell, or the FIPS code when NAME is absent.
func parseName(r row, fips string) string {
	if cell := r["NAME"]; cell != nil {
		return *cell
	}
	return fips
}
