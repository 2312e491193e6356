package pending

import (
	"context"
	"errors"

	"nf-tickets-sol/internal/types"
)

var ErrAttemptNotFound = errors.New("pending attempt not found")

// Journal 记录尚未得出最终结果的链上提交（按 actor 分组）。
// 发送前 Begin；确认 / 明确失败后 Finish；超时则 MarkUnknown 并保留。
type Journal interface {
	Begin(ctx context.Context, a *Attempt) error
	MarkUnknown(ctx context.Context, actor types.Pubkey, sig types.Signature) error
	Finish(ctx context.Context, actor types.Pubkey, sig types.Signature) error
	// Unresolved 按创建时间升序返回 actor 的全部未决提交
	Unresolved(ctx context.Context, actor types.Pubkey) ([]*Attempt, error)
}
