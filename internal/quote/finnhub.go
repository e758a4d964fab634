package quote

import (
	"context"
	"encoding/json"
	"finnhub-stock-bot/internal/types"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=quote_test -destination=mock_http_client_test.go -source=finnhub.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FinnhubClient fetches quotes and basic financials from the Finnhub REST API.
type FinnhubClient struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	header     http.Header
}

// FinnhubOption configures a FinnhubClient.
type FinnhubOption func(*FinnhubClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) FinnhubOption {
	return func(c *FinnhubClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) FinnhubOption {
	return func(c *FinnhubClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) FinnhubOption {
	return func(c *FinnhubClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewFinnhubClient creates a client authenticated with apiKey.
func NewFinnhubClient(apiKey string, options ...FinnhubOption) (*FinnhubClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Wrap(ErrInvalidCredentials, "api key is empty")
	}
	c := &FinnhubClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

type quoteResponse struct {
	C  *float64 `json:"c"`
	H  *float64 `json:"h"`
	L  *float64 `json:"l"`
	O  *float64 `json:"o"`
	PC *float64 `json:"pc"`
	D  *float64 `json:"d"`
	DP *float64 `json:"dp"`
	T  *int64   `json:"t"`
}

// Quote returns the current quote of symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (types.QuoteSnapshot, error) {
	var raw quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return types.QuoteSnapshot{}, errors.Wrapf(err, "quote %s", symbol)
	}

	// Finnhub answers unknown symbols with an all zero quote; d and dp are null.
	if raw.C != nil && raw.T != nil && *raw.C == 0 && *raw.T == 0 && raw.D == nil {
		return types.QuoteSnapshot{}, errors.Wrapf(ErrUnknownSymbol, "quote %s", symbol)
	}

	missing := missingFields(map[string]bool{
		"c": raw.C == nil, "h": raw.H == nil, "l": raw.L == nil, "o": raw.O == nil,
		"pc": raw.PC == nil, "t": raw.T == nil,
	})
	if len(missing) > 0 {
		return types.QuoteSnapshot{}, errors.Wrapf(ErrInvalidSnapshot, "quote %s: missing %s", symbol, strings.Join(missing, ","))
	}

	q := types.QuoteSnapshot{
		Current:       *raw.C,
		High:          *raw.H,
		Low:           *raw.L,
		Open:          *raw.O,
		PreviousClose: *raw.PC,
		Timestamp:     *raw.T,
	}
	if raw.D != nil {
		q.Change = *raw.D
	}
	if raw.DP != nil {
		q.PercentChange = *raw.DP
	}
	return q, nil
}

type metricResponse struct {
	Metric map[string]any `json:"metric"`
}

// Fundamentals returns the 52 week range of symbol.
func (c *FinnhubClient) Fundamentals(ctx context.Context, symbol string) (types.FundamentalsSnapshot, error) {
	var raw metricResponse
	if err := c.get(ctx, "/stock/metric", url.Values{"symbol": {symbol}, "metric": {"all"}}, &raw); err != nil {
		return types.FundamentalsSnapshot{}, errors.Wrapf(err, "fundamentals %s", symbol)
	}
	if len(raw.Metric) == 0 {
		return types.FundamentalsSnapshot{}, errors.Wrapf(ErrUnknownSymbol, "fundamentals %s", symbol)
	}

	low, err := metricNumber(raw.Metric, "52WeekLow")
	if err != nil {
		return types.FundamentalsSnapshot{}, errors.Wrapf(err, "fundamentals %s", symbol)
	}
	high, err := metricNumber(raw.Metric, "52WeekHigh")
	if err != nil {
		return types.FundamentalsSnapshot{}, errors.Wrapf(err, "fundamentals %s", symbol)
	}
	lowDate, _ := raw.Metric["52WeekLowDate"].(string)
	highDate, _ := raw.Metric["52WeekHighDate"].(string)

	return types.FundamentalsSnapshot{
		YearLow:      low,
		YearLowDate:  lowDate,
		YearHigh:     high,
		YearHighDate: highDate,
	}, nil
}

func (c *FinnhubClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header = c.header.Clone()
	req.Header.Set("X-Finnhub-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s%s?%s", c.baseURL, path, query.Encode())

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "performing request")
		}
		return errors.Wrapf(ErrTransientFetch, "performing request: %v", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return errors.Wrapf(ErrInvalidCredentials, "status %d", res.StatusCode)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return errors.Wrapf(ErrTransientFetch, "status %d", res.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.Wrapf(ErrInvalidSnapshot, "unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrInvalidSnapshot, "decoding response: %v", err)
	}
	return nil
}

func metricNumber(metric map[string]any, key string) (float64, error) {
	v, ok := metric[key]
	if !ok || v == nil {
		return 0, errors.Wrapf(ErrInvalidSnapshot, "missing %s", key)
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(ErrInvalidSnapshot, "%s is not a number: %v", key, v)
	}
	return f, nil
}

func missingFields(fields map[string]bool) []string {
	var out []string
	for _, name := range []string{"c", "h", "l", "o", "pc", "t"} {
		if fields[name] {
			out = append(out, name)
		}
	}
	return out
}
