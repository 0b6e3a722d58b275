package content

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/IliaW/robots-gate/internal/model"
)

const DefaultMaxContentLength = 262144

type Prober interface {
	Probe(ctx context.Context, targetURL string) (*model.ProbeResult, error)
}

// Gate decides from a HEAD probe whether the target is worth fetching: only text/* up to maxContentLength bytes.
type Gate struct {
	prober           Prober
	maxContentLength int64
}

func NewGate(prober Prober, maxContentLength int64) *Gate {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return &Gate{
		prober:           prober,
		maxContentLength: maxContentLength,
	}
}

// Check returns model.Unknown when the probe fails or the headers can not be read.
// Callers treat Unknown as admissible.
func (g *Gate) Check(ctx context.Context, targetURL string) model.ContentVerdict {
	result, err := g.prober.Probe(ctx, targetURL)
	if err != nil {
		slog.Error("HEAD request failed.", slog.String("url", targetURL), slog.String("err", err.Error()))
		return model.Unknown
	}

	if result.ContentType == "" {
		slog.Error("HEAD response has no content-type.", slog.String("url", targetURL),
			slog.Int("status code", result.StatusCode))
		return model.Unknown
	}
	slog.Info("got mime.", slog.String("url", targetURL), slog.String("content-type", result.ContentType))
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(result.ContentType)), "text/") {
		slog.Warn("disallowed mime.", slog.String("url", targetURL),
			slog.String("content-type", result.ContentType))
		return model.RejectedMimeType
	}

	var length int64
	if result.ContentLength != "" {
		length, err = strconv.ParseInt(strings.TrimSpace(result.ContentLength), 10, 64)
		if err != nil {
			slog.Error("failed to parse content-length.", slog.String("url", targetURL),
				slog.String("content-length", result.ContentLength), slog.String("err", err.Error()))
			return model.Unknown
		}
	}
	slog.Info("got length.", slog.String("url", targetURL), slog.Int64("content-length", length))
	if length > g.maxContentLength {
		slog.Warn("content too large.", slog.String("url", targetURL), slog.Int64("content-length", length))
		return model.RejectedContentLength
	}

	return model.Admissible
}
