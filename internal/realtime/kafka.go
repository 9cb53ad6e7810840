package realtime

import (
	"context"
	"time"

	"babytrack-go/internal/config"
	"babytrack-go/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// KafkaSource reads change payloads from a topic fed by a CDC pipeline, for
// deployments where several API processes cannot share one LISTEN
// connection. Messages carry the same JSON as the notify_change trigger.
type KafkaSource struct {
	reader *kafka.Reader
	log    logger.Logger
	now    func() time.Time
}

func NewKafkaSource(cfg config.RealtimeConfig, log logger.Logger) *KafkaSource {
	readerCfg := kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}
	if readerCfg.GroupID == "" {
		// Without a group every process sees every message from the tail.
		readerCfg.StartOffset = kafka.LastOffset
	}

	return &KafkaSource{
		reader: kafka.NewReader(readerCfg),
		log:    log.With("component", "realtime", "source", "kafka"),
		now:    time.Now,
	}
}

func (k *KafkaSource) Run(ctx context.Context, sink func(Change)) error {
	defer k.reader.Close()

	var backoff time.Duration
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			backoff = nextBackoff(backoff)
			k.log.Warn("realtime.kafka: read failed", "error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			continue
		}
		backoff = 0

		change, err := ParseChange(msg.Value, k.now())
		if err != nil {
			k.log.Warn("realtime.kafka: skipping message", "error", err, "partition", msg.Partition, "offset", msg.Offset)
			continue
		}
		sink(change)
	}
}
