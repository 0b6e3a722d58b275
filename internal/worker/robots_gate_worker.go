package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/broker"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/IliaW/robots-gate/internal/persistence"
	"github.com/IliaW/robots-gate/internal/robots"
	"github.com/IliaW/robots-gate/internal/telemetry"
)

var (
	ErrMissingURL = errors.New("message has no url")
)

type RobotsSource interface {
	Get(ctx context.Context, origin string) (string, error)
}

type ContentChecker interface {
	Check(ctx context.Context, targetURL string) model.ContentVerdict
}

// RobotsGateWorker takes one message at a time through robots.txt and content checks and either forwards
// it or records the rejection reason. Fetch and probe failures never block forwarding. Only store and broker
// failures are returned.
type RobotsGateWorker struct {
	InputChan <-chan *model.WorkItem
	Robots    RobotsSource
	Content   ContentChecker
	Db        persistence.StatusStorage
	Router    broker.Router
	DLQ       broker.DeadLetterSender
	Cfg       *config.DaemonConfig
	Metrics   *telemetry.AppMetrics
}

// Run processes messages until InputChan is closed. The first store or broker failure stops the worker.
func (w *RobotsGateWorker) Run(ctx context.Context) error {
	slog.Debug("start robots gate worker")
	for item := range w.InputChan {
		if _, err := w.Process(ctx, item); err != nil {
			return err
		}
	}
	slog.Info("robots gate worker stopped.")
	return nil
}

func (w *RobotsGateWorker) Process(ctx context.Context, item *model.WorkItem) (*model.Outcome, error) {
	// Acknowledge before any network call, a crash must not lead to redelivery.
	if err := item.Ack(); err != nil {
		return nil, fmt.Errorf("failed to acknowledge the message: %w", err)
	}
	outcome := &model.Outcome{State: model.StateReceived}

	var task model.CheckTask
	if err := json.Unmarshal(item.Body, &task); err != nil {
		slog.Error("failed to unmarshal the message.", slog.String("body", string(item.Body)),
			slog.String("err", err.Error()))
		return w.drop(item, outcome, err), nil
	}
	if strings.TrimSpace(task.URL) == "" {
		slog.Error("message has no url.", slog.String("body", string(item.Body)))
		return w.drop(item, outcome, ErrMissingURL), nil
	}
	outcome.URL = task.URL

	allowed := w.checkRobots(ctx, task.URL)
	outcome.State = model.StateRobotsChecked
	if !allowed {
		return w.reject(ctx, outcome, model.StatusDisallowedByRobotsTxt)
	}

	switch w.Content.Check(ctx, task.URL) {
	case model.RejectedMimeType:
		outcome.State = model.StateContentChecked
		return w.reject(ctx, outcome, model.StatusDisallowedMimeType)
	case model.RejectedContentLength:
		outcome.State = model.StateContentChecked
		return w.reject(ctx, outcome, model.StatusDisallowedContentLength)
	case model.Unknown:
		w.Metrics.ProbeErrorCnt(1)
	}
	outcome.State = model.StateContentChecked

	return w.forward(ctx, item, outcome)
}

// checkRobots reports whether the probe agent may fetch url. Failing to get robots.txt
// falls back to daemon.robots_fail_open.
func (w *RobotsGateWorker) checkRobots(ctx context.Context, url string) bool {
	origin, err := robots.Origin(url)
	if err != nil {
		slog.Error("failed to get robots origin.", slog.String("url", url), slog.String("err", err.Error()))
		return w.Cfg.RobotsFailOpen
	}
	slog.Info("using robots url.", slog.String("robots_url", robots.RobotsURL(origin)))

	robotsTxt, err := w.Robots.Get(ctx, origin)
	if err != nil {
		slog.Error("failed to get robots.txt.", slog.String("url", url), slog.String("err", err.Error()),
			slog.Bool("fail_open", w.Cfg.RobotsFailOpen))
		return w.Cfg.RobotsFailOpen
	}

	if !robots.CanFetch(robotsTxt, w.Cfg.ProbeUserAgent, url) {
		slog.Warn("disallowed.", slog.String("url", url))
		return false
	}
	slog.Info("allowed.", slog.String("url", url))

	return true
}

func (w *RobotsGateWorker) reject(ctx context.Context, outcome *model.Outcome,
	status model.UrlStatus) (*model.Outcome, error) {
	if err := w.Db.RecordStatus(ctx, outcome.URL, status); err != nil {
		return nil, err
	}
	w.Metrics.RejectedMsgCnt(1, string(status))
	outcome.State = model.StateRejected
	outcome.Status = status

	return outcome, nil
}

func (w *RobotsGateWorker) forward(ctx context.Context, item *model.WorkItem,
	outcome *model.Outcome) (*model.Outcome, error) {
	routingKey := ForwardRoutingKey(item.RoutingKey)
	if err := w.Router.Forward(ctx, item.Body, routingKey, w.Cfg.Exchange); err != nil {
		return nil, err
	}
	slog.Info("message sent with new key.", slog.String("url", outcome.URL), slog.String("routing_key", routingKey))
	w.Metrics.ForwardedMsgCnt(1)
	outcome.State = model.StateForwarded
	outcome.RoutingKey = routingKey

	return outcome, nil
}

func (w *RobotsGateWorker) drop(item *model.WorkItem, outcome *model.Outcome, err error) *model.Outcome {
	w.DLQ.SendToDLQ(item, err)
	w.Metrics.DroppedMsgCnt(1)
	outcome.State = model.StateDropped

	return outcome
}

// ForwardRoutingKey rewrites an inbound key for the next stage: every "check" becomes "url".
func ForwardRoutingKey(routingKey string) string {
	return strings.ReplaceAll(routingKey, "check", "url")
}
