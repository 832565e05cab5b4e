package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// sqsMaxWaitSeconds is the longest long-poll SQS allows per receive
// call. Pop loops receive calls to present a wait-forever contract.
const sqsMaxWaitSeconds = 20

// ensure interface is implemented
var _ Broker = (*SQSBroker)(nil)

// SQSBroker is a Broker backed by an SQS queue. Messages are deleted
// on receive: the pipeline records outcomes itself, so at-least-once
// delivery with an occasional redelivered job is acceptable and
// exactly-once is explicitly out of scope.
type SQSBroker struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSBroker creates an SQSBroker for the given queue URL using the
// ambient AWS configuration.
func NewSQSBroker(ctx context.Context, queueURL string) (*SQSBroker, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &SQSBroker{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// NewSQSBrokerFromClient wires an existing client.
func NewSQSBrokerFromClient(client *sqs.Client, queueURL string) *SQSBroker {
	return &SQSBroker{client: client, queueURL: queueURL}
}

// Push appends a value to the queue.
func (b *SQSBroker) Push(ctx context.Context, value string) error {
	_, err := b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

// Pop blocks until a message is available, long-polling in 20-second
// windows, and deletes the message before returning its body.
func (b *SQSBroker) Pop(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		out, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(b.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     sqsMaxWaitSeconds,
		})
		if err != nil {
			return "", fmt.Errorf("queue pop: %w", err)
		}
		if len(out.Messages) == 0 {
			continue // long poll timed out, wait again
		}

		msg := out.Messages[0]
		_, err = b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(b.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		})
		if err != nil {
			return "", fmt.Errorf("queue pop: delete message: %w", err)
		}

		if msg.Body == nil {
			continue
		}
		return *msg.Body, nil
	}
}
