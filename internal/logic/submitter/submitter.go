package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/ledger"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/metrics"
	"nf-tickets-sol/internal/types"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
)

type Option struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Prepared 已签名、尚未发送的交易。签名在发送前即已确定，可先落盘再发送。
type Prepared struct {
	Op        string
	Tx        soltypes.Transaction
	Signature types.Signature
	Blockhash ledger.Blockhash
	Batch     *instruction.Batch
}

// Receipt 链上确认结果
type Receipt struct {
	Signature types.Signature
	Slot      uint64
	Latency   time.Duration
}

type Submitter struct {
	ledger  ledger.Ledger
	opt     Option
	metrics *metrics.Metrics
}

func New(l ledger.Ledger, opt Option, m *metrics.Metrics) *Submitter {
	if opt.ConfirmTimeout <= 0 {
		opt.ConfirmTimeout = defaultConfirmTimeout
	}
	if opt.PollInterval <= 0 {
		opt.PollInterval = defaultPollInterval
	}
	return &Submitter{ledger: l, opt: opt, metrics: m}
}

func (s *Submitter) ConfirmTimeout() time.Duration {
	return s.opt.ConfirmTimeout
}

// Prepare 以 actor 为手续费支付者、取最新区块哈希构造 legacy 交易并完成全部签名
func (s *Submitter) Prepare(ctx context.Context, op string, actor soltypes.Account, batch *instruction.Batch) (*Prepared, error) {
	if len(batch.Instructions) == 0 {
		return nil, domain.NewError(domain.KindInvalidArgument, op, errors.New("empty instruction batch"))
	}
	bh, err := s.ledger.LatestBlockhash(ctx)
	if err != nil {
		// 尚未发送，结果确定为失败，可安全重试
		return nil, domain.NewError(domain.KindLedgerSubmissionFailed, op, err)
	}

	signers := make([]soltypes.Account, 0, len(batch.Signers)+1)
	signers = append(signers, actor)
	signers = append(signers, batch.Signers...)

	tx, err := soltypes.NewTransaction(soltypes.NewTransactionParam{
		Message: soltypes.NewMessage(soltypes.NewMessageParam{
			FeePayer:        actor.PublicKey,
			RecentBlockhash: bh.Hash,
			Instructions:    batch.Instructions,
		}),
		Signers: signers,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, op, fmt.Errorf("sign transaction: %w", err))
	}
	sig, err := types.SignatureFromBytes(tx.Signatures[0])
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, op, err)
	}
	return &Prepared{Op: op, Tx: tx, Signature: sig, Blockhash: bh, Batch: batch}, nil
}

// SendAndConfirm 发送并轮询签名状态，直到：
//   - confirmed/finalized：返回 Receipt
//   - 链上拒绝 / 区块哈希过期仍未上链：LedgerSubmissionFailed（或 AccountAlreadyExists）
//   - 超时 / 调用方取消：ConfirmationTimeout，结果未知
//
// 所有错误都携带交易签名。
func (s *Submitter) SendAndConfirm(ctx context.Context, p *Prepared) (*Receipt, error) {
	op := p.Op
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.opt.ConfirmTimeout)
	defer cancel()

	if _, err := s.ledger.SendTransaction(ctx, p.Tx); err != nil {
		var sendErr *ledger.SendError
		if errors.As(err, &sendErr) {
			s.metrics.ObserveSubmission(op, "rejected")
			return nil, s.rejected(op, p, sendErr)
		}
		// 传输层失败时交易可能已被节点接收，不能判定为失败
		logger.Warnf("[Submitter] 发送交易结果未知, op=%s, sig=%s, err=%v", op, p.Signature, err)
		s.metrics.ObserveSubmission(op, "unknown")
		return nil, s.unknown(op, p, err)
	}

	ticker := time.NewTicker(s.opt.PollInterval)
	defer ticker.Stop()
	for {
		receipt, done, err := s.poll(ctx, p, start)
		if done {
			if err == nil {
				s.metrics.ObserveSubmission(op, "confirmed")
				s.metrics.ObserveConfirmLatency(op, receipt.Latency)
			}
			return receipt, err
		}

		select {
		case <-ctx.Done():
			s.metrics.ObserveSubmission(op, "timeout")
			return nil, s.unknown(op, p, ctx.Err())
		case <-ticker.C:
		}
	}
}

// poll 单次查询；done=false 表示继续等待
func (s *Submitter) poll(ctx context.Context, p *Prepared, start time.Time) (*Receipt, bool, error) {
	st, err := s.ledger.SignatureStatus(ctx, p.Signature)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf("[Submitter] 查询签名状态失败, sig=%s, err=%v", p.Signature, err)
		}
		return nil, false, nil
	}
	if st.Found && st.Err != nil {
		s.metrics.ObserveSubmission(p.Op, "rejected")
		return nil, true, s.rejected(p.Op, p, st.Err)
	}
	if st.Found && st.Confirmed {
		return &Receipt{Signature: p.Signature, Slot: st.Slot, Latency: time.Since(start)}, true, nil
	}
	if st.Found {
		return nil, false, nil
	}

	height, err := s.ledger.BlockHeight(ctx)
	if err != nil || height <= p.Blockhash.LastValidBlockHeight {
		return nil, false, nil
	}
	// 区块哈希已过期；再查一次状态，避免与最后时刻上链的交易竞争
	st, err = s.ledger.SignatureStatus(ctx, p.Signature)
	if err != nil || st.Found {
		return nil, false, nil
	}
	s.metrics.ObserveSubmission(p.Op, "expired")
	e := domain.NewError(domain.KindLedgerSubmissionFailed, p.Op,
		fmt.Errorf("blockhash expired at height %d (current %d) without landing", p.Blockhash.LastValidBlockHeight, height))
	e.Signature = p.Signature.String()
	return nil, true, e
}

func (s *Submitter) rejected(op string, p *Prepared, sendErr *ledger.SendError) *domain.Error {
	kind := domain.KindLedgerSubmissionFailed
	if sendErr.AccountAlreadyInUse() {
		kind = domain.KindAccountAlreadyExists
	}
	e := domain.NewError(kind, op, sendErr)
	e.Signature = p.Signature.String()
	e.Instruction = sendErr.FailedInstruction()
	return e
}

func (s *Submitter) unknown(op string, p *Prepared, cause error) *domain.Error {
	e := domain.NewError(domain.KindConfirmationTimeout, op, cause)
	e.Signature = p.Signature.String()
	return e
}

// CheckLanded 查询一笔历史交易的最终结果（用于处理超时遗留的提交）。
// landed=true 表示已确认；expired=true 表示区块哈希已过期且未上链，可安全重试。
func (s *Submitter) CheckLanded(ctx context.Context, sig types.Signature, lastValidBlockHeight uint64) (landed bool, expired bool, rejected *ledger.SendError, err error) {
	st, err := s.ledger.SignatureStatus(ctx, sig)
	if err != nil {
		return false, false, nil, err
	}
	if st.Found {
		if st.Err != nil {
			return false, false, st.Err, nil
		}
		return st.Confirmed, false, nil, nil
	}
	height, err := s.ledger.BlockHeight(ctx)
	if err != nil {
		return false, false, nil, err
	}
	return false, height > lastValidBlockHeight, nil, nil
}
