package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// GroupConfig selects the topics one consumer group reads.
type GroupConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// RunGroup starts one reader and processor per topic and blocks until ctx is
// cancelled and every processor has returned.
func RunGroup(ctx context.Context, cfg GroupConfig, handler Handler, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var wg sync.WaitGroup
	for _, topic := range cfg.Topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.Brokers,
			GroupID:         cfg.GroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		proc := NewProcessor(reader, handler, WithLogger(logger.With(zap.String("topic", topic))))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			logger.Info("consumer started", zap.String("topic", topic), zap.String("group", cfg.GroupID))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.String("topic", topic), zap.Error(err))
			}
		}(topic, reader)
	}
	wg.Wait()
}
