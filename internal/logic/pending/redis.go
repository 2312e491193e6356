package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/types"
	"nf-tickets-sol/internal/utils"
)

// Redis key 前缀
const attemptPrefix = "pending:attempt"

const defaultAttemptTTL = 72 * time.Hour

// RedisJournal 每个 actor 一个 hash：field 为交易签名，value 为带类型前缀的 borsh 编码
type RedisJournal struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisJournal(rdb redis.UniversalClient, ttl time.Duration) *RedisJournal {
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &RedisJournal{rdb: rdb, ttl: ttl}
}

func (r *RedisJournal) getKey(actor types.Pubkey) string {
	return fmt.Sprintf("%s:%s", attemptPrefix, actor)
}

func (r *RedisJournal) Begin(ctx context.Context, a *Attempt) error {
	data, err := utils.EncodePayload(consts.PayloadPendingAttempt, *a)
	if err != nil {
		return err
	}
	key := r.getKey(a.Actor)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, a.Signature.String(), data)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis journal begin %s: %w", a.Signature, err)
	}
	return nil
}

func (r *RedisJournal) MarkUnknown(ctx context.Context, actor types.Pubkey, sig types.Signature) error {
	key := r.getKey(actor)
	raw, err := r.rdb.HGet(ctx, key, sig.String()).Bytes()
	switch {
	case err == redis.Nil:
		return ErrAttemptNotFound
	case err != nil:
		return fmt.Errorf("redis hget error: %w", err)
	}
	var a Attempt
	if err := utils.DecodePayload(raw, consts.PayloadPendingAttempt, &a); err != nil {
		return err
	}
	a.Status = AttemptUnknown
	data, err := utils.EncodePayload(consts.PayloadPendingAttempt, a)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, key, sig.String(), data).Err()
}

func (r *RedisJournal) Finish(ctx context.Context, actor types.Pubkey, sig types.Signature) error {
	if err := r.rdb.HDel(ctx, r.getKey(actor), sig.String()).Err(); err != nil {
		return fmt.Errorf("redis hdel error: %w", err)
	}
	return nil
}

func (r *RedisJournal) Unresolved(ctx context.Context, actor types.Pubkey) ([]*Attempt, error) {
	all, err := r.rdb.HGetAll(ctx, r.getKey(actor)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	out := make([]*Attempt, 0, len(all))
	for field, raw := range all {
		var a Attempt
		if err := utils.DecodePayload([]byte(raw), consts.PayloadPendingAttempt, &a); err != nil {
			return nil, fmt.Errorf("decode attempt %s: %w", field, err)
		}
		out = append(out, &a)
	}
	sortAttempts(out)
	return out, nil
}
