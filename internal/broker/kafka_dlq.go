package broker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/IliaW/robots-gate/internal/telemetry"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"
)

type DeadLetterSender interface {
	SendToDLQ(item *model.WorkItem, err error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaDLQClient struct {
	kafkaWriter messageWriter
	serviceName string
	metrics     *telemetry.DLQMetrics
}

// NewKafkaDLQ - kafka client for dead-letter queue topic.
// Without configured brokers or topic the messages are only logged.
func NewKafkaDLQ(serviceName string, cfg *config.DLQConfig, metrics *telemetry.DLQMetrics) *KafkaDLQClient {
	dlq := &KafkaDLQClient{
		serviceName: serviceName,
		metrics:     metrics,
	}
	if cfg == nil || len(cfg.Addr) == 0 || cfg.TopicName == "" {
		slog.Warn("kafka dead-letter queue is not configured.")
		return dlq
	}
	dlq.kafkaWriter = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Addr...),
		Topic:        cfg.TopicName,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		Compression:  kafka.Compression(new(lz4.Codec).Code()),
	}

	return dlq
}

func (dlq *KafkaDLQClient) SendToDLQ(item *model.WorkItem, err error) {
	msg := model.DLQMessage{
		ServiceName:  dlq.serviceName,
		Body:         string(item.Body),
		RoutingKey:   item.RoutingKey,
		ErrorMessage: err.Error(),
	}
	if dlq.kafkaWriter == nil {
		slog.Warn("dead-letter message is dropped.", slog.Any("message", msg))
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling error.", slog.String("err", err.Error()), slog.Any("message", msg))
		dlq.metrics.FailMsgCnt(1)
		return
	}

	err = dlq.kafkaWriter.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(item.RoutingKey),
		Value: body,
	})
	if err != nil {
		slog.Error("failed to send message to dead-letter queue.", slog.String("err", err.Error()))
		dlq.metrics.FailMsgCnt(1)
		return
	}
	dlq.metrics.SuccessMsgCnt(1)
	slog.Debug("successfully sent message to dead-letter queue.")
}

func (dlq *KafkaDLQClient) Close() {
	if dlq.kafkaWriter == nil {
		return
	}
	if err := dlq.kafkaWriter.Close(); err != nil {
		slog.Error("failed to close kafka writer.", slog.String("err", err.Error()))
	}
}
