package recorder

import (
	"fmt"

	"nf-tickets-sol/internal/logic/domain"
)

// Tracker 单次调用的两阶段状态，只允许合法迁移
type Tracker struct {
	state   domain.RecordState
	history []domain.RecordState
}

func NewTracker() *Tracker {
	return &Tracker{state: domain.StateLedgerPending, history: []domain.RecordState{domain.StateLedgerPending}}
}

func (t *Tracker) State() domain.RecordState {
	return t.state
}

func (t *Tracker) History() []domain.RecordState {
	out := make([]domain.RecordState, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracker) Advance(to domain.RecordState) error {
	if !t.state.CanTransition(to) {
		return fmt.Errorf("illegal record state transition %s -> %s", t.state, to)
	}
	t.state = to
	t.history = append(t.history, to)
	return nil
}
