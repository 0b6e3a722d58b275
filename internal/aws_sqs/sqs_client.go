package aws_sqs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/IliaW/robots-gate/internal/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQS has no routing keys, the key travels as a message attribute.
const routingKeyAttribute = "routing_key"

type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient consumes daemon.queue and forwards to the queue named by the exchange.
type SQSClient struct {
	client    sqsAPI
	queueName string
	url       *string
	queueUrls map[string]*string
	mu        sync.Mutex
	cfg       *config.SQSConfig
	metrics   *telemetry.BrokerMetrics
}

func NewSQSClient(cfg *config.Config, metrics *telemetry.BrokerMetrics) *SQSClient {
	slog.Info("connecting to sqs...")

	c, err := connect(cfg)
	if err != nil {
		slog.Error("failed to connect to sqs.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	sqsClient, err := newSQSClient(c, cfg, metrics)
	if err != nil {
		slog.Error("failed to get queue url.", slog.String("err", err.Error()),
			slog.String("queue_name", cfg.DaemonSettings.Queue))
		os.Exit(1)
	}

	return sqsClient
}

func newSQSClient(api sqsAPI, cfg *config.Config, metrics *telemetry.BrokerMetrics) (*SQSClient, error) {
	c := &SQSClient{
		client:    api,
		queueName: cfg.DaemonSettings.Queue,
		queueUrls: make(map[string]*string),
		cfg:       cfg.SQSSettings,
		metrics:   metrics,
	}
	url, err := c.queueUrl(context.Background(), c.queueName)
	if err != nil {
		return nil, err
	}
	c.url = url

	return c, nil
}

// Consume polls the queue one message at a time until ctx is done.
// Messages without a routing key attribute get the queue name as the key.
func (c *SQSClient) Consume(ctx context.Context) (<-chan *model.WorkItem, error) {
	slog.Info("starting sqs consumer...", slog.String("queue_url", *c.url))
	getInput := &sqs.ReceiveMessageInput{
		QueueUrl:              c.url,
		MaxNumberOfMessages:   1,
		WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
		VisibilityTimeout:     c.cfg.VisibilityTimeout,
		MessageAttributeNames: []string{routingKeyAttribute},
	}

	out := make(chan *model.WorkItem)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping sqs consumer...")
				return
			default:
			}

			output, err := c.client.ReceiveMessage(ctx, getInput)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				slog.Error("failed to receive message from sqs.", slog.String("err", err.Error()))
				continue
			}
			if len(output.Messages) == 0 {
				slog.Debug("no messages received from sqs.")
				continue
			}

			for _, m := range output.Messages {
				c.metrics.ReceivedMsgCnt(1)
				select {
				case out <- c.toWorkItem(m):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *SQSClient) toWorkItem(m types.Message) *model.WorkItem {
	routingKey := c.queueName
	if attr, ok := m.MessageAttributes[routingKeyAttribute]; ok && attr.StringValue != nil {
		routingKey = *attr.StringValue
	}
	receiptHandle := m.ReceiptHandle

	return &model.WorkItem{
		Body:       []byte(aws.ToString(m.Body)),
		RoutingKey: routingKey,
		Ack: func() error {
			_, err := c.client.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{
				QueueUrl:      c.url,
				ReceiptHandle: receiptHandle,
			})
			if err != nil {
				c.metrics.AckFailCnt(1)
				return fmt.Errorf("failed to delete message from sqs: %w", err)
			}
			return nil
		},
	}
}

func (c *SQSClient) Forward(ctx context.Context, body []byte, routingKey, exchange string) error {
	url, err := c.queueUrl(ctx, exchange)
	if err != nil {
		c.metrics.PublishFailCnt(1)
		return err
	}
	_, err = c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    url,
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			routingKeyAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(routingKey),
			},
		},
	})
	if err != nil {
		c.metrics.PublishFailCnt(1)
		return fmt.Errorf("failed to send message to sqs: %w", err)
	}
	c.metrics.PublishSuccessCnt(1)
	slog.Debug("message sent to sqs.", slog.String("queue", exchange), slog.String("routing_key", routingKey))

	return nil
}

func (c *SQSClient) queueUrl(ctx context.Context, name string) (*string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if url, ok := c.queueUrls[name]; ok {
		return url, nil
	}
	out, err := c.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to get url of queue '%s': %w", name, err)
	}
	c.queueUrls[name] = out.QueueUrl

	return out.QueueUrl, nil
}

func (c *SQSClient) Close() {}

func connect(cfg *config.Config) (*sqs.Client, error) {
	sqsConfig, err := awsCfg.LoadDefaultConfig(context.Background(), awsCfg.WithRegion(cfg.SQSSettings.Region))
	if err != nil {
		slog.Error("failed to load sqs config.", slog.String("err", err.Error()))
		return nil, err
	}

	if cfg.Env == "local" {
		sqsConfig.BaseEndpoint = &cfg.SQSSettings.AwsBaseEndpoint // for LocalStack
		sqsConfig.Credentials = crd.NewStaticCredentialsProvider("test", "test", "")
	}

	return sqs.NewFromConfig(sqsConfig), nil
}
