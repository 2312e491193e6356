package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/zeromicro/go-zero/core/fx"

	"nf-tickets-sol/internal/ledger"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/reconcile"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/metrics"
)

// 单条信号的处理结果，同时写入 reconciliation_log.result 与指标标签
const (
	resultRecorded     = "recorded"
	resultDuplicate    = "duplicate"
	resultLedgerFailed = "ledger_failed"
	resultRetry        = "retry"
	resultNotLanded    = "not_landed"
)

// ReconcileStore 对账任务需要的存储能力
type ReconcileStore interface {
	recorder.Store
	AppendReconciliation(ctx context.Context, signalID, kind, signature, address, result, detail string) error
}

type ReconcileOption struct {
	Interval      time.Duration
	BatchSize     int
	WriteRetries  int
	RetryInterval time.Duration
	AlertAttempts int64
}

// ReconcileReport 一轮扫描的统计
type ReconcileReport struct {
	Processed int
	Recorded  int
	Retried   int
	Dropped   int
}

// ReconcileService 定期消费对账队列：确认交易已上链后补写链下记录
type ReconcileService struct {
	ledger  ledger.Ledger
	queue   reconcile.Queue
	store   ReconcileStore
	metrics *metrics.Metrics
	opt     ReconcileOption

	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelCauseFunc
	stopChan  chan struct{}
}

func NewReconcileService(l ledger.Ledger, q reconcile.Queue, store ReconcileStore, m *metrics.Metrics, opt ReconcileOption) (*ReconcileService, error) {
	if opt.Interval <= 0 {
		opt.Interval = 30 * time.Second
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = 100
	}
	if opt.WriteRetries <= 0 {
		opt.WriteRetries = 3
	}
	if opt.RetryInterval <= 0 {
		opt.RetryInterval = 200 * time.Millisecond
	}
	if opt.AlertAttempts <= 0 {
		opt.AlertAttempts = 10
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	s := &ReconcileService{
		ledger:    l,
		queue:     q,
		store:     store,
		metrics:   m,
		opt:       opt,
		scheduler: scheduler,
		ctx:       ctx,
		cancel:    cancel,
		stopChan:  make(chan struct{}),
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(opt.Interval),
		gocron.NewTask(s.tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel(err)
		return nil, fmt.Errorf("register reconcile job: %w", err)
	}
	return s, nil
}

func (s *ReconcileService) Start() {
	logger.Infof("[ReconcileService] 启动, interval=%v, batch=%d", s.opt.Interval, s.opt.BatchSize)
	s.scheduler.Start()
	<-s.stopChan
}

func (s *ReconcileService) Stop() {
	s.cancel(errors.New("ReconcileService stop"))
	if err := s.scheduler.Shutdown(); err != nil {
		logger.Warnf("[ReconcileService] 关闭调度器失败: %v", err)
	}
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
	logger.Infof("[ReconcileService] 已停止")
}

func (s *ReconcileService) tick() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[ReconcileService] tick panic: %v\n%s", r, debug.Stack())
		}
	}()

	report, err := s.RunOnce(s.ctx)
	if err != nil {
		logger.Warnf("[ReconcileService] 本轮对账失败: %v", err)
		return
	}
	if report.Processed > 0 {
		logger.Infof("[ReconcileService] 本轮对账完成, processed=%d, recorded=%d, retried=%d, dropped=%d",
			report.Processed, report.Recorded, report.Retried, report.Dropped)
	}
}

// RunOnce 处理队列头部最多 BatchSize 条信号。处理失败的信号移到队尾保留，下一轮继续。
func (s *ReconcileService) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	entries, err := s.queue.Peek(ctx, s.opt.BatchSize)
	if err != nil {
		return report, fmt.Errorf("peek reconcile queue: %w", err)
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		report.Processed++
		result, detail := s.handle(ctx, e.Signal)
		s.metrics.ObserveReconcile(result)
		s.appendLog(ctx, e.Signal, result, detail)

		switch result {
		case resultRecorded, resultDuplicate, resultLedgerFailed:
			if result == resultLedgerFailed {
				report.Dropped++
			} else {
				report.Recorded++
			}
			if err := s.queue.Ack(ctx, e); err != nil {
				logger.Warnf("[ReconcileService] 确认信号失败, %s, err=%v", e.Signal, err)
			}
		default:
			report.Retried++
			s.retryLater(ctx, e, detail)
		}
	}

	if depth, err := s.queue.Depth(ctx); err == nil {
		s.metrics.SetQueueDepth(int(depth))
	}
	return report, nil
}

// handle 先向链上确认交易状态，再补写。链上确认是写库的前提。
func (s *ReconcileService) handle(ctx context.Context, sig *reconcile.Signal) (string, string) {
	st, err := s.ledger.SignatureStatus(ctx, sig.Signature)
	switch {
	case err != nil:
		return resultRetry, fmt.Sprintf("signature status: %v", err)
	case st.Found && st.Err != nil:
		// 信号只在确认后产生；链上失败意味着信号本身有误
		logger.Errorf("[ReconcileService] 交易链上失败, 丢弃信号, %s, err=%v", sig, st.Err)
		return resultLedgerFailed, st.Err.Error()
	case !st.Found || !st.Confirmed:
		return resultNotLanded, "transaction not confirmed yet"
	}

	var lastErr error
	duplicate := false
	err = fx.DoWithRetry(func() error {
		duplicate, lastErr = s.write(ctx, sig)
		return lastErr
	}, fx.WithRetry(s.opt.WriteRetries), fx.WithInterval(s.opt.RetryInterval))
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return resultRetry, lastErr.Error()
	}
	if duplicate {
		return resultDuplicate, ""
	}
	return resultRecorded, ""
}

// write 直接写库，不经过 Recorder，避免失败时再次发出信号
func (s *ReconcileService) write(ctx context.Context, sig *reconcile.Signal) (bool, error) {
	var err error
	switch {
	case sig.Event != nil:
		_, err = s.store.RecordEvent(ctx, sig.Event)
	case sig.Ticket != nil:
		_, err = s.store.RecordTicket(ctx, sig.Ticket)
	default:
		return false, fmt.Errorf("signal %s carries no record", sig.ID)
	}
	if errors.Is(err, domain.ErrDuplicateLedgerAddress) {
		return true, nil
	}
	return false, err
}

// retryLater 累计重试次数并把信号移到队尾，避免一直失败的信号挡住后面的信号
func (s *ReconcileService) retryLater(ctx context.Context, e *reconcile.Entry, detail string) {
	if err := s.queue.Requeue(ctx, e); err != nil {
		logger.Warnf("[ReconcileService] 信号移至队尾失败, %s, err=%v", e.Signal, err)
	}
	n, err := s.queue.IncrAttempts(ctx, e)
	if err != nil {
		logger.Warnf("[ReconcileService] 记录重试次数失败, %s, err=%v", e.Signal, err)
		return
	}
	if n >= s.opt.AlertAttempts {
		logger.Errorf("[ReconcileService] 告警: 信号多轮补写仍未成功, attempts=%d, %s, detail=%s", n, e.Signal, detail)
		return
	}
	logger.Warnf("[ReconcileService] 补写未成功, 下轮重试, attempts=%d, %s, detail=%s", n, e.Signal, detail)
}

func (s *ReconcileService) appendLog(ctx context.Context, sig *reconcile.Signal, result, detail string) {
	err := s.store.AppendReconciliation(ctx, sig.ID.String(), sig.Kind.String(), sig.Signature.String(), sig.Address.String(), result, detail)
	if err != nil {
		logger.Warnf("[ReconcileService] 写对账日志失败, %s, err=%v", sig, err)
	}
}
