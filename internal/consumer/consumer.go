package consumer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kseniia567/fraud-detection-ADD/internal/config"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
	"github.com/Kseniia567/fraud-detection-ADD/internal/transform"
)

// Consumer runs one receiver per consumed queue
type Consumer struct {
	receivers []*Receiver
	log       *zap.Logger
}

// NewTransformer builds the consumer that cleans raw_data_process batches
func NewTransformer(cfg *config.Config, queueConsumer queue.QueueConsumer, publisher queue.QueuePublisher, cleaner *transform.Cleaner, m *metrics.Metrics, log *zap.Logger) *Consumer {
	settler := NewSettler(publisher, cfg.RabbitMQ.DeadLetterExchange, retryPolicy(cfg), m, log)
	stage := NewTransformStage(publisher, NewJSONBatchParser(), cleaner, settler, queue.ExchangeName, m, log)

	return &Consumer{
		receivers: []*Receiver{
			NewReceiver(queueConsumer, queue.QueueRawProcess, stage, log),
		},
		log: log,
	}
}

// NewPersister builds the consumer that writes both upload queues to the store
func NewPersister(cfg *config.Config, queueConsumer queue.QueueConsumer, publisher queue.QueuePublisher, repo repository.TransactionRepository, m *metrics.Metrics, log *zap.Logger) *Consumer {
	settler := NewSettler(publisher, cfg.RabbitMQ.DeadLetterExchange, retryPolicy(cfg), m, log)
	parser := NewJSONBatchParser()

	rawWriter := NewRawBatchWriter(repo, parser, settler, cfg.Postgres.WriteTimeout, m, log)
	processedWriter := NewProcessedBatchWriter(repo, parser, settler, cfg.Postgres.WriteTimeout, m, log)

	return &Consumer{
		receivers: []*Receiver{
			NewReceiver(queueConsumer, queue.QueueRawUpload, rawWriter, log),
			NewReceiver(queueConsumer, queue.QueueProcessedUpload, processedWriter, log),
		},
		log: log,
	}
}

func retryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}
}

// Start runs every receiver until ctx is done or one of them fails. The
// first failure stops the others and is returned.
func (c *Consumer) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range c.receivers {
		g.Go(func() error {
			return r.Start(gctx)
		})
	}

	err := g.Wait()
	c.log.Info("All receivers stopped")
	return err
}
