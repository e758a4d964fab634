package quote_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"finnhub-stock-bot/internal/quote"
)

// testContext mirrors testing.T.Context (Go 1.24+): a context cancelled when
// the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func newClient(t *testing.T, httpClient quote.HTTPClient) *quote.FinnhubClient {
	t.Helper()
	client, err := quote.NewFinnhubClient("secret", quote.WithHTTPClient(httpClient), quote.WithBaseURL("http://finnhub.local/api/v1/"))
	require.NoError(t, err)
	return client
}

func TestNewFinnhubClient_EmptyKey(t *testing.T) {
	t.Parallel()

	_, err := quote.NewFinnhubClient("  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrInvalidCredentials))
}

func TestQuote_RequestAndDecode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "http://finnhub.local/api/v1/quote?symbol=AAPL", req.URL.String())
			require.Equal(t, "secret", req.Header.Get("X-Finnhub-Token"))
			require.Equal(t, "bar", req.Header.Get("Foo"))
			return respond(http.StatusOK, `{"c":105,"d":2.5,"dp":2.44,"h":106,"l":100,"o":101,"pc":102.5,"t":1700000000}`)(req)
		}).
		Times(1)

	client, err := quote.NewFinnhubClient("secret",
		quote.WithHTTPClient(httpClient),
		quote.WithBaseURL("http://finnhub.local/api/v1"),
		quote.WithHeader(http.Header{"Foo": []string{"bar"}}),
	)
	require.NoError(t, err)

	q, err := client.Quote(testContext(t), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 105.0, q.Current)
	assert.Equal(t, 106.0, q.High)
	assert.Equal(t, 100.0, q.Low)
	assert.Equal(t, 101.0, q.Open)
	assert.Equal(t, 102.5, q.PreviousClose)
	assert.Equal(t, 2.5, q.Change)
	assert.Equal(t, 2.44, q.PercentChange)
	assert.Equal(t, int64(1700000000), q.Timestamp)
}

func TestQuote_UnknownSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).
		DoAndReturn(respond(http.StatusOK, `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))

	_, err := newClient(t, httpClient).Quote(testContext(t), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrUnknownSymbol))
}

func TestQuote_MissingFields(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).
		DoAndReturn(respond(http.StatusOK, `{"c":105,"h":106,"t":1700000000}`))

	_, err := newClient(t, httpClient).Quote(testContext(t), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrInvalidSnapshot))
	assert.Contains(t, err.Error(), "l,o,pc")
}

func TestQuote_NonNumericField(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).
		DoAndReturn(respond(http.StatusOK, `{"c":"abc","h":106,"l":1,"o":1,"pc":1,"t":1}`))

	_, err := newClient(t, httpClient).Quote(testContext(t), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrInvalidSnapshot))
}

func TestGet_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, quote.ErrInvalidCredentials},
		{"forbidden", http.StatusForbidden, quote.ErrInvalidCredentials},
		{"rate limited", http.StatusTooManyRequests, quote.ErrTransientFetch},
		{"server error", http.StatusBadGateway, quote.ErrTransientFetch},
		{"bad request", http.StatusBadRequest, quote.ErrInvalidSnapshot},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(tt.status, `{"error":"nope"}`))

			_, err := newClient(t, httpClient).Quote(testContext(t), "AAPL")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGet_NetworkError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := newClient(t, httpClient).Fundamentals(testContext(t), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrTransientFetch))
	assert.Equal(t, "transient", quote.Kind(err))
}

func TestGet_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(nil, context.Canceled)

	_, err := newClient(t, httpClient).Quote(ctx, "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "cancelled", quote.Kind(err))
}

func TestFundamentals_Decode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/stock/metric", req.URL.Path)
			require.Equal(t, "all", req.URL.Query().Get("metric"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			return respond(http.StatusOK, `{"metric":{"52WeekHigh":199.62,"52WeekHighDate":"2023-12-14","52WeekLow":124.17,"52WeekLowDate":"2023-01-03","beta":1.3},"symbol":"AAPL"}`)(req)
		})

	f, err := newClient(t, httpClient).Fundamentals(testContext(t), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 124.17, f.YearLow)
	assert.Equal(t, "2023-01-03", f.YearLowDate)
	assert.Equal(t, 199.62, f.YearHigh)
	assert.Equal(t, "2023-12-14", f.YearHighDate)
}

func TestFundamentals_EmptyMetricIsUnknownSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(http.StatusOK, `{"metric":{},"symbol":"NOPE"}`))

	_, err := newClient(t, httpClient).Fundamentals(testContext(t), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrUnknownSymbol))
	assert.Equal(t, "unknown_symbol", quote.Kind(err))
}

func TestFundamentals_MissingRange(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(http.StatusOK, `{"metric":{"52WeekHigh":10,"beta":1}}`))

	_, err := newClient(t, httpClient).Fundamentals(testContext(t), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrInvalidSnapshot))
	assert.Contains(t, err.Error(), "52WeekLow")
}
