package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
	"nf-tickets-sol/internal/utils"
)

// Signal 链上已确认、链下写入失败时发出的对账信号。
// 携带补写所需的全部信息，消费者无需再访问调用方上下文。
type Signal struct {
	ID        uuid.UUID
	Kind      domain.RecordKind
	Signature types.Signature
	Address   types.Pubkey
	Event     *domain.EventRecord
	Ticket    *domain.TicketRecord
	Reason    string
	CreatedAt int64 // unix 毫秒
}

func NewEventSignal(rec *domain.EventRecord, cause error) *Signal {
	return &Signal{
		ID:        uuid.New(),
		Kind:      domain.RecordKindEvent,
		Signature: rec.Signature,
		Address:   rec.LedgerAddress,
		Event:     rec,
		Reason:    reason(cause),
		CreatedAt: time.Now().UnixMilli(),
	}
}

func NewTicketSignal(rec *domain.TicketRecord, cause error) *Signal {
	return &Signal{
		ID:        uuid.New(),
		Kind:      domain.RecordKindTicket,
		Signature: rec.Signature,
		Address:   rec.LedgerAddress,
		Ticket:    rec,
		Reason:    reason(cause),
		CreatedAt: time.Now().UnixMilli(),
	}
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Signal) String() string {
	return fmt.Sprintf("signal{id=%s kind=%s sig=%s address=%s}", s.ID, s.Kind, s.Signature, s.Address)
}

func (s *Signal) Encode() ([]byte, error) {
	return utils.EncodePayload(consts.PayloadReconcileSignal, *s)
}

func DecodeSignal(data []byte) (*Signal, error) {
	var s Signal
	if err := utils.DecodePayload(data, consts.PayloadReconcileSignal, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
