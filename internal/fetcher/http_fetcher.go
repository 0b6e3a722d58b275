package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"golang.org/x/time/rate"
)

// bodies above RFC 9309's 500 KiB parsing limit are truncated
const maxRobotsTxtSize = 512 * 1024

// HttpFetcher performs the outbound requests of the gate: the robots.txt GET and the HEAD probe.
// Both carry the daemon user agent.
type HttpFetcher struct {
	client      *http.Client
	probeClient *http.Client
	userAgent   string
	rateLimiter *rate.Limiter
}

func NewHttpFetcher(client *http.Client, cfg *config.DaemonConfig, rateLimiter *rate.Limiter) *HttpFetcher {
	probeClient := client
	if !cfg.ProbeFollowRedirects {
		c := *client
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
		probeClient = &c
	}
	if rateLimiter == nil {
		rateLimiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &HttpFetcher{
		client:      client,
		probeClient: probeClient,
		userAgent:   cfg.UserAgent,
		rateLimiter: rateLimiter,
	}
}

// NewRateLimiter refills one request per time_interval with a burst of requests_limit.
// A non-positive limit disables limiting.
func NewRateLimiter(cfg *config.WorkerConfig) *rate.Limiter {
	if cfg == nil || cfg.RequestsLimit <= 0 || cfg.TimeInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(cfg.TimeInterval), cfg.RequestsLimit)
}

// FetchRobots returns the body of robotsURL whatever the status code is.
// Only transport level failures are returned as errors.
func (f *HttpFetcher) FetchRobots(ctx context.Context, robotsURL string) (string, error) {
	resp, err := f.do(ctx, f.client, http.MethodGet, robotsURL)
	if err != nil {
		return "", err
	}
	defer func(Body io.ReadCloser) {
		if err = Body.Close(); err != nil {
			slog.Warn("failed to close the response body.", slog.String("err", err.Error()))
		}
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsTxtSize))
	if err != nil {
		return "", fmt.Errorf("read robots.txt body: %w", err)
	}
	slog.Debug("robots.txt fetched.", slog.String("url", robotsURL), slog.Int("status code", resp.StatusCode),
		slog.Int("size", len(body)))

	return string(body), nil
}

// Probe issues a HEAD request to targetURL and returns the content metadata.
func (f *HttpFetcher) Probe(ctx context.Context, targetURL string) (*model.ProbeResult, error) {
	resp, err := f.do(ctx, f.probeClient, http.MethodHead, targetURL)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err = Body.Close(); err != nil {
			slog.Warn("failed to close the response body.", slog.String("err", err.Error()))
		}
	}(resp.Body)

	return &model.ProbeResult{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.Header.Get("Content-Length"),
	}, nil
}

func (f *HttpFetcher) do(ctx context.Context, client *http.Client, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	if err = f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}
