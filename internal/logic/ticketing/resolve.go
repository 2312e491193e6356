package ticketing

import (
	"context"
	"fmt"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/pending"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/types"
)

// ResolveOutcome 单条未决提交的处理结果
type ResolveOutcome struct {
	Signature types.Signature
	Kind      domain.RecordKind
	Address   types.Pubkey
	Status    pending.AttemptStatus
	State     domain.RecordState
	Err       error
}

// ResolvePending 逐条查询 actor 的未决提交：
//   - 已上链：前向补记链下数据
//   - 被拒绝或区块哈希已过期：清除，可安全重试
//   - 其它：仍未知，保留
func (s *Service) ResolvePending(ctx context.Context, actor types.Pubkey) ([]ResolveOutcome, error) {
	attempts, err := s.unresolved(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("read pending journal: %w", err)
	}

	out := make([]ResolveOutcome, 0, len(attempts))
	for _, a := range attempts {
		res := ResolveOutcome{
			Signature: a.Signature,
			Kind:      a.Kind,
			Address:   a.Address,
			Status:    a.Status,
			State:     domain.StateLedgerPending,
		}

		landed, expired, rejected, err := s.submitter.CheckLanded(ctx, a.Signature, a.LastValidBlockHeight)
		switch {
		case err != nil:
			res.Err = err
		case rejected != nil:
			res.State = domain.StateLedgerFailed
			res.Err = rejected
			s.finish(ctx, actor, a.Signature)
		case landed:
			res.Status = pending.AttemptLanded
			res.State, res.Err = s.forwardRecord(ctx, a)
			s.settle(ctx, actor, a.Signature, res.Err)
		case expired:
			res.Status = pending.AttemptExpired
			res.State = domain.StateLedgerFailed
			s.finish(ctx, actor, a.Signature)
		}
		logger.Infof("[Ticketing] 未决提交处理, sig=%s, kind=%s, status=%s, state=%s, err=%v",
			a.Signature, a.Kind, res.Status, res.State, res.Err)
		out = append(out, res)
	}
	return out, nil
}

func (s *Service) forwardRecord(ctx context.Context, a *pending.Attempt) (domain.RecordState, error) {
	tracker := recorder.NewTracker()
	if err := tracker.Advance(domain.StateLedgerConfirmed); err != nil {
		return tracker.State(), err
	}
	var err error
	switch {
	case a.Event != nil:
		s.composer.MarkManagerExists(a.Event.ManagerAddress)
		_, err = s.recorder.RecordEvent(ctx, tracker, a.Event)
	case a.Ticket != nil:
		_, err = s.recorder.RecordTicket(ctx, tracker, a.Ticket)
	default:
		err = fmt.Errorf("attempt %s carries no record", a.Signature)
	}
	return tracker.State(), err
}
