package worker

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"presence.service/pkg/logger"
	"presence.service/pkg/telemetry"
)

// SQS caps a single receive at 10 messages.
const maxReceiveBatch = 10

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one message taken from an export queue.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker polls a queue and hands messages to a Processor.
type Worker struct {
	client    SQSClient
	queueURL  string
	processor Processor
	// Concurrency controls how many messages can be processed at the same time.
	Concurrency int
	// WaitTime is the long-poll duration of each receive, in seconds.
	WaitTime int32
	// ErrorBackoff is how long the poller sleeps after a failed receive.
	ErrorBackoff time.Duration
}

// NewWorker creates a new SQS worker, ready to be started.
func NewWorker(client SQSClient, url string, proc Processor, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Worker{
		client:       client,
		queueURL:     url,
		processor:    proc,
		Concurrency:  concurrency,
		WaitTime:     20,
		ErrorBackoff: 5 * time.Second,
	}
}

// Start polls until ctx is canceled and returns once in-flight messages are handled.
func (w *Worker) Start(ctx context.Context) {
	log.Info().Str("queue", w.queueURL).Int("concurrency", w.Concurrency).Msg("SQS Worker started. Polling for messages...")

	messagesCh := make(chan types.Message, w.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processMessages(ctx, messagesCh)
		}()
	}

	w.pollMessages(ctx, messagesCh)
	wg.Wait()
	log.Info().Str("queue", w.queueURL).Msg("SQS Worker stopped")
}

func (w *Worker) pollMessages(ctx context.Context, messagesCh chan<- types.Message) {
	defer close(messagesCh)

	batch := int32(min(w.Concurrency, maxReceiveBatch))
	for {
		if ctx.Err() != nil {
			log.Info().Msg("Poller shutting down...")
			return
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &w.queueURL,
			MaxNumberOfMessages:   batch,
			WaitTimeSeconds:       w.WaitTime,
			MessageAttributeNames: []string{"All"},
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("Error receiving messages")
			select {
			case <-ctx.Done():
			case <-time.After(w.ErrorBackoff):
			}
			continue
		}
		if len(output.Messages) > 0 {
			log.Debug().Int("count", len(output.Messages)).Msg("Received messages")
		}
		for _, msg := range output.Messages {
			select {
			case messagesCh <- msg:
			case <-ctx.Done():
				// Unsent messages become visible again after their timeout.
				return
			}
		}
	}
}

func (w *Worker) processMessages(ctx context.Context, messagesCh <-chan types.Message) {
	for msg := range messagesCh {
		w.handleSingleMessage(ctx, msg)
	}
}

// handleSingleMessage deletes the message on success, delays it on a retryable failure and
// leaves it for the queue's redrive policy otherwise.
func (w *Worker) handleSingleMessage(ctx context.Context, msg types.Message) {
	ctx, span := telemetry.ConsumeSpan(ctx, w.queueURL, msg)
	defer span.End()

	ctx = logger.WithTrace(ctx)

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)

	if err != nil && shouldRetry {
		log.Ctx(ctx).Warn().Err(err).Int32("retry_delay", retryDelay).Msg("Processing failed, will retry")

		if _, vErr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          &w.queueURL,
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); vErr != nil {
			log.Ctx(ctx).Error().Err(vErr).Msg("Failed to change message visibility")
		}
		return
	}

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Unrecoverable error processing message, will not retry")
		return
	}

	if _, dErr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &w.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); dErr != nil {
		log.Ctx(ctx).Error().Err(dErr).Msg("Failed to delete processed message")
	}
}

// ReceiveCount returns how many times SQS has delivered msg, 1 when unknown.
func ReceiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Backoff returns the visibility delay in seconds before the next attempt. It doubles with
// each attempt starting at 20s and is capped at one hour.
func Backoff(attempt int) int32 {
	backoff := math.Pow(2, float64(attempt)) * 10
	if backoff > 3600 {
		return 3600
	}
	return int32(backoff)
}
