package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type failingRoundTripper struct {
	err error
}

func (rt *failingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, rt.err
}

func Test_FetchRobots(t *testing.T) {
	testSet := []struct {
		name         string
		statusCode   int
		body         string
		expectedBody string
	}{
		{
			name:         "robots.txt found",
			statusCode:   http.StatusOK,
			body:         "User-agent: *\nDisallow: /private",
			expectedBody: "User-agent: *\nDisallow: /private",
		},
		{
			name:         "not found page is returned as is",
			statusCode:   http.StatusNotFound,
			body:         "<html>Not Found</html>",
			expectedBody: "<html>Not Found</html>",
		},
		{
			name:         "server error page is returned as is",
			statusCode:   http.StatusInternalServerError,
			body:         "oops",
			expectedBody: "oops",
		},
	}
	for _, test := range testSet {
		t.Run(test.name, func(tt *testing.T) {
			var gotUserAgent, gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserAgent = r.UserAgent()
				gotPath = r.URL.Path
				w.WriteHeader(test.statusCode)
				_, _ = w.Write([]byte(test.body))
			}))
			defer srv.Close()

			f := NewHttpFetcher(srv.Client(), &config.DaemonConfig{UserAgent: "Checker/1.0"}, nil)
			body, err := f.FetchRobots(context.Background(), srv.URL+"/robots.txt")

			require.NoError(tt, err)
			assert.Equal(tt, test.expectedBody, body)
			assert.Equal(tt, "Checker/1.0", gotUserAgent)
			assert.Equal(tt, "/robots.txt", gotPath)
		})
	}
}

func Test_FetchRobots_TruncatesLargeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxRobotsTxtSize+100)))
	}))
	defer srv.Close()

	f := NewHttpFetcher(srv.Client(), &config.DaemonConfig{}, nil)
	body, err := f.FetchRobots(context.Background(), srv.URL+"/robots.txt")

	require.NoError(t, err)
	assert.Len(t, body, maxRobotsTxtSize)
}

func Test_FetchRobots_NetworkError(t *testing.T) {
	client := &http.Client{Transport: &failingRoundTripper{err: errors.New("connection refused")}}
	f := NewHttpFetcher(client, &config.DaemonConfig{}, nil)

	_, err := f.FetchRobots(context.Background(), "http://example.com/robots.txt")

	assert.ErrorContains(t, err, "connection refused")
}

func Test_Probe(t *testing.T) {
	var gotMethod, gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUserAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", "1024")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHttpFetcher(srv.Client(), &config.DaemonConfig{UserAgent: "Checker/1.0"}, nil)
	result, err := f.Probe(context.Background(), srv.URL+"/page")

	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "Checker/1.0", gotUserAgent)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", result.ContentType)
	assert.Equal(t, "1024", result.ContentLength)
}

func Test_Probe_Redirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			w.Header().Set("Content-Type", "text/html")
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("redirect is not followed by default", func(tt *testing.T) {
		f := NewHttpFetcher(srv.Client(), &config.DaemonConfig{}, nil)
		result, err := f.Probe(context.Background(), srv.URL+"/old")
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusMovedPermanently, result.StatusCode)
		assert.Equal(tt, "text/html", result.ContentType)
	})
	t.Run("redirect is followed when enabled", func(tt *testing.T) {
		f := NewHttpFetcher(srv.Client(), &config.DaemonConfig{ProbeFollowRedirects: true}, nil)
		result, err := f.Probe(context.Background(), srv.URL+"/old")
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusOK, result.StatusCode)
		assert.Equal(tt, "application/pdf", result.ContentType)
	})
}

func Test_Probe_InvalidUrl(t *testing.T) {
	f := NewHttpFetcher(http.DefaultClient, &config.DaemonConfig{}, nil)
	_, err := f.Probe(context.Background(), "http://[::1")
	assert.Error(t, err)
}

func Test_NewRateLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, NewRateLimiter(nil).Limit())
	assert.Equal(t, rate.Inf, NewRateLimiter(&config.WorkerConfig{RequestsLimit: 0, TimeInterval: time.Second}).Limit())

	l := NewRateLimiter(&config.WorkerConfig{RequestsLimit: 5, TimeInterval: time.Second})
	assert.Equal(t, rate.Every(time.Second), l.Limit())
	assert.Equal(t, 5, l.Burst())
}
