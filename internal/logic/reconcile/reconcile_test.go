package reconcile

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

type recordingProducer struct {
	mu   sync.Mutex
	msgs []*kafka.Message
	err  error
}

func (p *recordingProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
	m := *msg
	deliveryChan <- &m
	return nil
}

type failingSink struct {
	durable bool
}

func (f failingSink) Name() string  { return "failing" }
func (f failingSink) Durable() bool { return f.durable }
func (f failingSink) Notify(context.Context, *Signal) error {
	return errors.New("sink down")
}

func sampleSignal(n byte) *Signal {
	var addr types.Pubkey
	addr[0] = n
	var sig types.Signature
	sig[0] = n
	return NewEventSignal(&domain.EventRecord{
		LedgerAddress:  addr,
		ManagerAddress: consts.DefaultVenueAuthority,
		ArtistWallet:   consts.DefaultVenueAuthority,
		Signature:      sig,
		Metadata:       domain.EventMetadata{Name: "Night Show", Capacity: 10},
	}, errors.New("connection refused"))
}

func TestSignal_Encode(t *testing.T) {
	s := sampleSignal(3)
	data, err := s.Encode()
	require.NoError(t, err)

	out, err := DecodeSignal(data)
	require.NoError(t, err)
	assert.Equal(t, s, out)
	assert.Equal(t, "connection refused", out.Reason)
	assert.Nil(t, out.Ticket)
}

// durableQueue 把内存队列当作持久 sink，用于验证 Fanout 的送达判定
type durableQueue struct {
	*MemoryQueue
}

func (durableQueue) Durable() bool { return true }

func TestFanout(t *testing.T) {
	ctx := context.Background()

	q := durableQueue{NewMemoryQueue()}
	require.NoError(t, NewFanout(LogSink{}, failingSink{durable: true}, q).Notify(ctx, sampleSignal(1)))
	depth, _ := q.Depth(ctx)
	assert.Equal(t, int64(1), depth)

	err := NewFanout(LogSink{}, failingSink{durable: true}).Notify(ctx, sampleSignal(1))
	assert.ErrorContains(t, err, "sink down")

	err = NewFanout(LogSink{}).Notify(ctx, sampleSignal(1))
	assert.Error(t, err)
}

func TestFanout_MemoryQueueIsNotDurable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryQueue()

	err := NewFanout(LogSink{}, mem).Notify(ctx, sampleSignal(1))
	assert.ErrorContains(t, err, "no durable reconciliation sink")
	depth, _ := mem.Depth(ctx)
	assert.Equal(t, int64(1), depth, "the in-process queue still gets a copy")

	err = NewFanout(LogSink{}, mem, failingSink{durable: true}).Notify(ctx, sampleSignal(2))
	assert.ErrorContains(t, err, "sink down")
}

func TestKafkaSink(t *testing.T) {
	p := &recordingProducer{}
	sink := NewKafkaSink(p, "nftickets-reconcile", 4, time.Second)
	s := sampleSignal(5)
	require.NoError(t, sink.Notify(context.Background(), s))

	require.Len(t, p.msgs, 1)
	msg := p.msgs[0]
	assert.Equal(t, "nftickets-reconcile", *msg.TopicPartition.Topic)
	assert.Equal(t, []byte(s.ID.String()), msg.Key)
	decoded, err := DecodeSignal(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, s.ID, decoded.ID)

	p.err = errors.New("queue full")
	assert.Error(t, sink.Notify(context.Background(), s))
}

func exerciseQueue(t *testing.T, q Queue) {
	ctx := context.Background()
	first, second := sampleSignal(1), sampleSignal(2)
	require.NoError(t, q.Notify(ctx, first))
	require.NoError(t, q.Notify(ctx, second))

	entries, err := q.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].Signal.ID)
	assert.Equal(t, second.ID, entries[1].Signal.ID)

	require.NoError(t, q.Requeue(ctx, entries[0]))
	entries, err = q.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].Signal.ID, "requeued entry moves behind the others")
	assert.Equal(t, first.ID, entries[1].Signal.ID)
	entries[0], entries[1] = entries[1], entries[0]

	n, err := q.IncrAttempts(ctx, entries[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = q.IncrAttempts(ctx, entries[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, q.Ack(ctx, entries[0]))
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	entries, err = q.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].Signal.ID)
	require.NoError(t, q.Ack(ctx, entries[0]))
}

func TestMemoryQueue(t *testing.T) {
	exerciseQueue(t, NewMemoryQueue())
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	rdb.Del(context.Background(), queueKey, attemptsKey)

	exerciseQueue(t, NewRedisQueue(rdb))
}
