package domain

import "fmt"

// RecordState 两阶段写入的状态：
//
//	LedgerPending ──► LedgerConfirmed ──► Recorded
//	      │                  │
//	      ▼                  ▼
//	 LedgerFailed     RecordedPending ──► Recorded（前向对账）
type RecordState int

const (
	StateLedgerPending RecordState = iota
	StateLedgerConfirmed
	StateRecorded
	StateLedgerFailed
	StateRecordedPending
)

var stateNames = []string{
	"LEDGER_PENDING",
	"LEDGER_CONFIRMED",
	"RECORDED",
	"LEDGER_FAILED",
	"RECORDED_PENDING",
}

func (s RecordState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("RecordState(%d)", int(s))
}

var transitions = map[RecordState][]RecordState{
	StateLedgerPending:   {StateLedgerConfirmed, StateLedgerFailed},
	StateLedgerConfirmed: {StateRecorded, StateRecordedPending},
	StateRecordedPending: {StateRecorded},
}

func (s RecordState) CanTransition(to RecordState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RecordState) Terminal() bool {
	return s == StateRecorded || s == StateLedgerFailed
}
