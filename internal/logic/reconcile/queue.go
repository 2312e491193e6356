package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"nf-tickets-sol/internal/pkg/logger"
)

// Entry 队列中的一条信号；raw 用于精确删除
type Entry struct {
	Signal *Signal
	raw    []byte
}

// Queue 后台对账任务消费的持久队列
type Queue interface {
	Sink
	Peek(ctx context.Context, limit int) ([]*Entry, error)
	Ack(ctx context.Context, e *Entry) error
	// IncrAttempts 记录一次失败的补写尝试，返回累计次数
	IncrAttempts(ctx context.Context, e *Entry) (int64, error)
	// Requeue 把条目移到队尾，让后面的信号先被处理
	Requeue(ctx context.Context, e *Entry) error
	Depth(ctx context.Context) (int64, error)
}

const (
	queueKey    = "reconcile:queue"
	attemptsKey = "reconcile:attempts"
)

// RedisQueue 使用 Redis list 作为队列：LPUSH 入队，从尾部按 FIFO 读取，处理成功后 LREM
type RedisQueue struct {
	rdb redis.UniversalClient
}

func NewRedisQueue(rdb redis.UniversalClient) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Name() string  { return "redis" }
func (q *RedisQueue) Durable() bool { return true }

func (q *RedisQueue) Notify(ctx context.Context, s *Signal) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("redis lpush error: %w", err)
	}
	return nil
}

func (q *RedisQueue) Peek(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	// list 头部是最新入队的，取尾部 limit 个并倒序，保证先进先出
	raws, err := q.rdb.LRange(ctx, queueKey, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange error: %w", err)
	}
	out := make([]*Entry, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		raw := []byte(raws[i])
		s, err := DecodeSignal(raw)
		if err != nil {
			// 无法解码的条目直接移除，避免阻塞队列
			logger.Errorf("[Reconcile] 丢弃无法解码的对账信号: %v", err)
			_ = q.rdb.LRem(ctx, queueKey, 1, raw).Err()
			continue
		}
		out = append(out, &Entry{Signal: s, raw: raw})
	}
	return out, nil
}

func (q *RedisQueue) Ack(ctx context.Context, e *Entry) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, queueKey, 1, e.raw)
		pipe.HDel(ctx, attemptsKey, e.Signal.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis ack %s: %w", e.Signal.ID, err)
	}
	return nil
}

func (q *RedisQueue) IncrAttempts(ctx context.Context, e *Entry) (int64, error) {
	n, err := q.rdb.HIncrBy(ctx, attemptsKey, e.Signal.ID.String(), 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby error: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) Requeue(ctx context.Context, e *Entry) error {
	// 读取端在 list 尾部，重新 LPUSH 即排到最后
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, queueKey, 1, e.raw)
		pipe.LPush(ctx, queueKey, e.raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis requeue %s: %w", e.Signal.ID, err)
	}
	return nil
}

func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, queueKey).Result()
}

// MemoryQueue 进程内队列，未配置 Redis 时使用。进程退出即丢失，因此不算持久投递。
type MemoryQueue struct {
	mu       sync.Mutex
	entries  []*Entry
	attempts map[string]int64
	// Fail 非空时 Notify 返回该错误（测试用）
	Fail error
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{attempts: make(map[string]int64)}
}

func (q *MemoryQueue) Name() string  { return "memory" }
func (q *MemoryQueue) Durable() bool { return false }

func (q *MemoryQueue) Notify(ctx context.Context, s *Signal) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	cp := *s
	q.entries = append(q.entries, &Entry{Signal: &cp})
	return nil
}

func (q *MemoryQueue) Peek(ctx context.Context, limit int) ([]*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit > len(q.entries) {
		limit = len(q.entries)
	}
	out := make([]*Entry, limit)
	copy(out, q.entries[:limit])
	return out, nil
}

func (q *MemoryQueue) Ack(ctx context.Context, e *Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, cur := range q.entries {
		if cur == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			delete(q.attempts, e.Signal.ID.String())
			return nil
		}
	}
	return errors.New("entry not found")
}

func (q *MemoryQueue) IncrAttempts(ctx context.Context, e *Entry) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.attempts[e.Signal.ID.String()]++
	return q.attempts[e.Signal.ID.String()], nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, e *Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, cur := range q.entries {
		if cur == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.entries = append(q.entries, e)
			return nil
		}
	}
	return errors.New("entry not found")
}

func (q *MemoryQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}
