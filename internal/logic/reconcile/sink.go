package reconcile

import (
	"context"
	"errors"
	"fmt"

	"nf-tickets-sol/internal/pkg/logger"
)

// Sink 对账信号的一个去向
type Sink interface {
	Name() string
	// Durable 为 true 表示信号写入后可被后台任务消费（队列 / 消息总线）
	Durable() bool
	Notify(ctx context.Context, s *Signal) error
}

// Fanout 把信号写到全部 sink；只要有一个 durable sink 成功即视为已送达
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Notify(ctx context.Context, s *Signal) error {
	var errs []error
	delivered := false
	for _, sink := range f.sinks {
		if err := sink.Notify(ctx, s); err != nil {
			logger.Errorf("[Reconcile] 对账信号写入 %s 失败, %s, err=%v", sink.Name(), s, err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		if sink.Durable() {
			delivered = true
		}
	}
	if delivered {
		return nil
	}
	if len(errs) == 0 {
		return errors.New("no durable reconciliation sink configured")
	}
	return errors.Join(errs...)
}

// LogSink 以 error 级别日志输出信号（运维可见，但不可消费）
type LogSink struct{}

func (LogSink) Name() string  { return "log" }
func (LogSink) Durable() bool { return false }

func (LogSink) Notify(ctx context.Context, s *Signal) error {
	logger.Errorf("[Reconcile] 链上已确认但链下未记录, id=%s, kind=%s, sig=%s, address=%s, reason=%s",
		s.ID, s.Kind, s.Signature, s.Address, s.Reason)
	return nil
}
