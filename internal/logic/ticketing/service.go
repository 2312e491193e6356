package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/ledger"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/logic/pending"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/logic/submitter"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/types"
)

const (
	opCreateEvent = "create_event"
	opMintTicket  = "mint_ticket"
)

// Service 面向调用方的链上创建流程：派生地址 → 组装 → 提交确认 → 链下记录
type Service struct {
	ledger    ledger.Ledger
	composer  *instruction.Composer
	submitter *submitter.Submitter
	recorder  *recorder.Recorder
	journal   pending.Journal
	programID types.Pubkey

	// staleAfter 之后仍为 Pending 的提交不再视为进行中
	staleAfter time.Duration
}

func NewService(
	l ledger.Ledger,
	composer *instruction.Composer,
	sub *submitter.Submitter,
	rec *recorder.Recorder,
	journal pending.Journal,
) *Service {
	return &Service{
		ledger:     l,
		composer:   composer,
		submitter:  sub,
		recorder:   rec,
		journal:    journal,
		programID:  composer.Program().ID,
		staleAfter: 2 * sub.ConfirmTimeout(),
	}
}

// refuseIfUnresolved actor 存在结果未知的提交时拒绝新的创建，避免超时后盲目重试造成重复。
// 其它调用方正在进行中的提交不阻塞本次调用，重复的 setup_manager 由链上裁决。
func (s *Service) refuseIfUnresolved(ctx context.Context, op string, actor types.Pubkey) error {
	list, err := s.unresolved(ctx, actor)
	if err != nil {
		return domain.NewError(domain.KindLedgerSubmissionFailed, op, fmt.Errorf("read pending journal: %w", err))
	}
	if len(list) == 0 {
		return nil
	}
	e := domain.NewError(domain.KindConfirmationTimeout, op,
		fmt.Errorf("%d unresolved submission(s) for %s, resolve pending first", len(list), actor))
	e.Signature = list[0].Signature.String()
	e.Address = list[0].Address.String()
	return e
}

// unresolved 返回结果未知的提交，跳过仍在进行中的
func (s *Service) unresolved(ctx context.Context, actor types.Pubkey) ([]*pending.Attempt, error) {
	all, err := s.journal.Unresolved(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := all[:0]
	for _, a := range all {
		if !a.InFlight(now, s.staleAfter) {
			out = append(out, a)
		}
	}
	return out, nil
}

// submitted 一次提交的结果
type submitted struct {
	prepared *submitter.Prepared
	receipt  *submitter.Receipt
	tracker  *recorder.Tracker
}

// submit 签名 → 写 journal → 发送并等待确认。
// fill 在签名确定后补全待记录数据（记录中需要携带签名）。
func (s *Service) submit(
	ctx context.Context,
	op string,
	actor soltypes.Account,
	batch *instruction.Batch,
	fill func(a *pending.Attempt, sig types.Signature),
) (*submitted, error) {
	tracker := recorder.NewTracker()

	prepared, err := s.submitter.Prepare(ctx, op, actor, batch)
	if err != nil {
		_ = tracker.Advance(domain.StateLedgerFailed)
		return nil, err
	}

	actorKey := types.PubkeyFromCommon(actor.PublicKey)
	attempt := &pending.Attempt{
		Signature:            prepared.Signature,
		Actor:                actorKey,
		Kind:                 batch.Kind,
		LastValidBlockHeight: prepared.Blockhash.LastValidBlockHeight,
		Status:               pending.AttemptPending,
		CreatedAt:            time.Now().UnixMilli(),
	}
	fill(attempt, prepared.Signature)
	if err := s.journal.Begin(ctx, attempt); err != nil {
		// 尚未发送
		e := domain.NewError(domain.KindLedgerSubmissionFailed, op, fmt.Errorf("write pending journal: %w", err))
		e.Signature = prepared.Signature.String()
		return nil, e
	}

	receipt, err := s.submitter.SendAndConfirm(ctx, prepared)
	if err != nil {
		if domain.KindOf(err) == domain.KindConfirmationTimeout {
			// 结果未知：保留 journal，等待 ResolvePending
			if markErr := s.journal.MarkUnknown(context.WithoutCancel(ctx), actorKey, prepared.Signature); markErr != nil {
				logger.Errorf("[Ticketing] 标记未决提交失败, sig=%s, err=%v", prepared.Signature, markErr)
			}
			logger.Warnf("[Ticketing] 等待确认超时, 结果未知, op=%s, sig=%s", op, prepared.Signature)
			return &submitted{prepared: prepared, tracker: tracker}, err
		}
		_ = tracker.Advance(domain.StateLedgerFailed)
		s.finish(ctx, actorKey, prepared.Signature)
		return &submitted{prepared: prepared, tracker: tracker}, err
	}

	if err := tracker.Advance(domain.StateLedgerConfirmed); err != nil {
		return nil, err
	}
	return &submitted{prepared: prepared, receipt: receipt, tracker: tracker}, nil
}

func (s *Service) finish(ctx context.Context, actor types.Pubkey, sig types.Signature) {
	if err := s.journal.Finish(context.WithoutCancel(ctx), actor, sig); err != nil {
		logger.Warnf("[Ticketing] 清除提交记录失败, sig=%s, err=%v", sig, err)
	}
}

// settle 记录完成后清理 journal；写库失败但信号未送达时保留，由 ResolvePending 补记
func (s *Service) settle(ctx context.Context, actor types.Pubkey, sig types.Signature, recordErr error) {
	if recordErr != nil && errors.Is(recordErr, recorder.ErrSignalUndelivered) {
		logger.Errorf("[Ticketing] 写库失败且对账信号未送达, 保留提交记录, sig=%s", sig)
		// 标记为未知，使其立即对 ResolvePending 可见
		if err := s.journal.MarkUnknown(context.WithoutCancel(ctx), actor, sig); err != nil {
			logger.Errorf("[Ticketing] 标记未决提交失败, sig=%s, err=%v", sig, err)
		}
		return
	}
	s.finish(ctx, actor, sig)
}
