package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"nf-tickets-sol/internal/logic/domain"
)

// Store 链下记录的 postgres 实现
type Store struct {
	pool    *pgxpool.Pool
	events  *EventRepository
	tickets *TicketRepository
	recon   *ReconciliationRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		events:  NewEventRepository(pool),
		tickets: NewTicketRepository(pool),
		recon:   NewReconciliationRepository(pool),
	}
}

func (s *Store) RecordEvent(ctx context.Context, rec *domain.EventRecord) (*domain.EventRow, error) {
	return s.events.Insert(ctx, rec)
}

// RecordTicket 在同一事务内写入门票并扣减活动剩余票数。
// 先插入再判断余票，已售罄活动上的重复写入仍返回 ErrDuplicateLedgerAddress。
func (s *Store) RecordTicket(ctx context.Context, rec *domain.TicketRecord) (*domain.TicketRow, error) {
	var row *domain.TicketRow
	err := withTx(ctx, s.pool, func(ctx context.Context) error {
		eventID, remaining, err := s.events.lockForTicket(ctx, rec.EventAddress.String())
		if err != nil {
			return err
		}
		if row, err = s.tickets.insert(ctx, eventID, rec); err != nil {
			return err
		}
		if remaining <= 0 {
			return domain.ErrSoldOut
		}
		return s.events.decrementRemaining(ctx, eventID)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Store) EventByAddress(ctx context.Context, ledgerAddress string) (*domain.EventRow, error) {
	return s.events.GetByAddress(ctx, ledgerAddress)
}

func (s *Store) TicketByAddress(ctx context.Context, ledgerAddress string) (*domain.TicketRow, error) {
	return s.tickets.GetByAddress(ctx, ledgerAddress)
}

func (s *Store) AppendReconciliation(ctx context.Context, signalID, kind, signature, address, result, detail string) error {
	return s.recon.Append(ctx, signalID, kind, signature, address, result, detail)
}
