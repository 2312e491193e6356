package reconcile

import (
	"context"
	"fmt"
	"time"

	"nf-tickets-sol/internal/pkg/mq"
	"nf-tickets-sol/internal/utils"
)

// KafkaSink 把信号投递到 Kafka topic，按账户地址分区
type KafkaSink struct {
	producer   mq.Producer
	topic      string
	partitions uint32
	timeout    time.Duration
}

func NewKafkaSink(producer mq.Producer, topic string, partitions int, timeout time.Duration) *KafkaSink {
	if partitions <= 0 {
		partitions = 1
	}
	return &KafkaSink{producer: producer, topic: topic, partitions: uint32(partitions), timeout: timeout}
}

func (k *KafkaSink) Name() string  { return "kafka" }
func (k *KafkaSink) Durable() bool { return true }

func (k *KafkaSink) Notify(ctx context.Context, s *Signal) error {
	value, err := s.Encode()
	if err != nil {
		return err
	}
	job := &mq.KafkaJob{
		Topic:     k.topic,
		Partition: int32(utils.PartitionHashBytes(s.Address[:], k.partitions)),
		Key:       []byte(s.ID.String()),
		Value:     value,
	}
	_, failed := mq.SendKafkaJobs(ctx, k.producer, []*mq.KafkaJob{job}, k.timeout)
	if len(failed) > 0 {
		return fmt.Errorf("kafka send %s: %w", s.ID, failed[0].Err)
	}
	return nil
}
