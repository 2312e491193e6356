package recorder

import (
	"context"
	"errors"
	"fmt"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/reconcile"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/metrics"
)

// ErrSignalUndelivered 写库失败且对账信号没有送达任何持久 sink
var ErrSignalUndelivered = errors.New("reconciliation signal undelivered")

// Store 链下关系库。重复的 ledger_address 返回 domain.ErrDuplicateLedgerAddress。
type Store interface {
	RecordEvent(ctx context.Context, rec *domain.EventRecord) (*domain.EventRow, error)
	RecordTicket(ctx context.Context, rec *domain.TicketRecord) (*domain.TicketRow, error)
	EventByAddress(ctx context.Context, ledgerAddress string) (*domain.EventRow, error)
	TicketByAddress(ctx context.Context, ledgerAddress string) (*domain.TicketRow, error)
}

// Notifier 对账信号的出口
type Notifier interface {
	Notify(ctx context.Context, s *reconcile.Signal) error
}

// Recorder 是创建链下记录的唯一入口：只有在链上确认之后才会写库
type Recorder struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
}

func New(store Store, notifier Notifier, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, notifier: notifier, metrics: m}
}

func (r *Recorder) Store() Store {
	return r.store
}

// RecordEvent tracker 必须处于 LedgerConfirmed。
// 写库失败时发出对账信号并返回 PersistenceAfterConfirmation，tracker 进入 RecordedPending。
func (r *Recorder) RecordEvent(ctx context.Context, tr *Tracker, rec *domain.EventRecord) (*domain.EventRow, error) {
	const op = "recorder.RecordEvent"
	if err := requireConfirmed(op, tr); err != nil {
		return nil, err
	}

	row, err := r.store.RecordEvent(ctx, rec)
	if errors.Is(err, domain.ErrDuplicateLedgerAddress) {
		// 已由其它路径（对账 / 回放）写入，视为幂等成功
		row, err = r.store.EventByAddress(ctx, rec.LedgerAddress.String())
	}
	if err != nil {
		return nil, r.fail(ctx, op, tr, reconcile.NewEventSignal(rec, err), err)
	}
	if err := tr.Advance(domain.StateRecorded); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *Recorder) RecordTicket(ctx context.Context, tr *Tracker, rec *domain.TicketRecord) (*domain.TicketRow, error) {
	const op = "recorder.RecordTicket"
	if err := requireConfirmed(op, tr); err != nil {
		return nil, err
	}

	row, err := r.store.RecordTicket(ctx, rec)
	if errors.Is(err, domain.ErrDuplicateLedgerAddress) {
		row, err = r.store.TicketByAddress(ctx, rec.LedgerAddress.String())
	}
	if err != nil {
		return nil, r.fail(ctx, op, tr, reconcile.NewTicketSignal(rec, err), err)
	}
	if err := tr.Advance(domain.StateRecorded); err != nil {
		return nil, err
	}
	return row, nil
}

func requireConfirmed(op string, tr *Tracker) error {
	if tr.State() != domain.StateLedgerConfirmed {
		return fmt.Errorf("%s: refusing to record in state %s", op, tr.State())
	}
	return nil
}

// fail 链上已确认、链下写入失败：必须让运维可见（日志 + 对账信号），同时返回给调用方
func (r *Recorder) fail(ctx context.Context, op string, tr *Tracker, sig *reconcile.Signal, cause error) error {
	_ = tr.Advance(domain.StateRecordedPending)
	r.metrics.ObserveSignal(sig.Kind.String())

	logger.Errorf("[Recorder] 链上已确认但写库失败, kind=%s, sig=%s, address=%s, err=%v",
		sig.Kind, sig.Signature, sig.Address, cause)

	// 调用方的 ctx 可能已取消，信号必须照常发出
	notifyErr := r.notifier.Notify(context.WithoutCancel(ctx), sig)
	if notifyErr != nil {
		logger.Errorf("[Recorder] 对账信号发送失败, %s, err=%v", sig, notifyErr)
		cause = errors.Join(cause, fmt.Errorf("%w: %w", ErrSignalUndelivered, notifyErr))
	}

	e := domain.NewError(domain.KindPersistenceAfterConfirmation, op, cause)
	e.Signature = sig.Signature.String()
	e.Address = sig.Address.String()
	return e
}
