package broker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/IliaW/robots-gate/internal/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router re-publishes a message body under a new routing key. It does not wait for delivery confirmation.
//
//go:generate go run github.com/vektra/mockery/v2@v2.53.0 --name Router
type Router interface {
	Forward(ctx context.Context, body []byte, routingKey, exchange string) error
}

type Consumer interface {
	Consume(ctx context.Context) (<-chan *model.WorkItem, error)
}

type AMQPClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	cfg     *config.AMQPConfig
	metrics *telemetry.BrokerMetrics
}

func NewAMQPClient(cfg *config.Config, metrics *telemetry.BrokerMetrics) *AMQPClient {
	slog.Info("connecting to rabbitmq...")
	conn, err := connectWithRetry(cfg.AMQPSettings.URL, cfg.AMQPSettings.MaxRetry, cfg.AMQPSettings.RetryDelay)
	if err != nil {
		slog.Error("failed to connect to rabbitmq.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	channel, err := conn.Channel()
	if err != nil {
		slog.Error("failed to open rabbitmq channel.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	// one unacknowledged message at a time, the gate processes items one by one
	if err = channel.Qos(cfg.AMQPSettings.Prefetch, 0, false); err != nil {
		slog.Error("failed to set rabbitmq qos.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to rabbitmq!", slog.String("queue", cfg.DaemonSettings.Queue))

	return &AMQPClient{
		conn:    conn,
		channel: channel,
		queue:   cfg.DaemonSettings.Queue,
		cfg:     cfg.AMQPSettings,
		metrics: metrics,
	}
}

func connectWithRetry(url string, maxRetry int, delay time.Duration) (*amqp.Connection, error) {
	if maxRetry <= 0 {
		maxRetry = 1
	}
	var conn *amqp.Connection
	var err error
	for i := 1; i <= maxRetry; i++ {
		slog.Info("dial rabbitmq.", slog.String("attempt", fmt.Sprintf("%d/%d", i, maxRetry)))
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		slog.Error("not responding.", slog.String("err", err.Error()))
		if i < maxRetry {
			slog.Info(fmt.Sprintf("wait %v", delay))
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetry, err)
}

// Consume delivers queue messages until ctx is done or the broker closes the channel.
// Messages are not acknowledged automatically, the receiver calls WorkItem.Ack.
func (c *AMQPClient) Consume(ctx context.Context) (<-chan *model.WorkItem, error) {
	deliveries, err := c.channel.Consume(
		c.queue,
		c.cfg.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	slog.Info("starting rabbitmq consumer...", slog.String("queue", c.queue))

	out := make(chan *model.WorkItem)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping rabbitmq consumer...")
				return
			case d, ok := <-deliveries:
				if !ok {
					slog.Error("rabbitmq delivery channel is closed.")
					return
				}
				c.metrics.ReceivedMsgCnt(1)
				select {
				case out <- deliveryToWorkItem(d, c.metrics):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func deliveryToWorkItem(d amqp.Delivery, metrics *telemetry.BrokerMetrics) *model.WorkItem {
	return &model.WorkItem{
		Body:       d.Body,
		RoutingKey: d.RoutingKey,
		Ack: func() error {
			if err := d.Ack(false); err != nil {
				metrics.AckFailCnt(1)
				return err
			}
			return nil
		},
	}
}

func (c *AMQPClient) Forward(ctx context.Context, body []byte, routingKey, exchange string) error {
	err := c.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{Body: body},
	)
	if err != nil {
		c.metrics.PublishFailCnt(1)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	c.metrics.PublishSuccessCnt(1)
	slog.Debug("message published.", slog.String("exchange", exchange), slog.String("routing_key", routingKey))

	return nil
}

func (c *AMQPClient) Close() {
	slog.Info("closing rabbitmq connection.")
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Error("failed to close rabbitmq channel.", slog.String("err", err.Error()))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			slog.Error("failed to close rabbitmq connection.", slog.String("err", err.Error()))
		}
	}
}
