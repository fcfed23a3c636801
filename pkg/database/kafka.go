package database

import (
	"context"
	"fmt"
	"time"

	"portfolio_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 確認 broker 可連線且 topic 存在後建立 Writer
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if k.RetryCount < 1 {
		k.RetryCount = 1
	}

	var err error
	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		if err = probeKafka(ctx, k.Brokers[0]); err == nil {
			logger.Log.Info("kafka writer ready", zap.String("topic", k.Topic), zap.Int("attempt", attempt))
			return &kafka.Writer{
				Addr:                   kafka.TCP(k.Brokers...),
				Topic:                  k.Topic,
				Balancer:               &kafka.Hash{},
				AllowAutoTopicCreation: true,
				RequiredAcks:           kafka.RequireOne,
			}, nil
		}

		logger.Log.Warn("kafka connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(k.RetryInterval):
		}
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %w", k.RetryCount, err)
}

func probeKafka(ctx context.Context, broker string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	// topic 不存在時由 AllowAutoTopicCreation 建立, 這裡只確認 metadata 可讀
	if _, err := conn.ReadPartitions(); err != nil {
		return err
	}
	return nil
}
