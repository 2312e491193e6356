package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nf-tickets-sol/internal/logic/domain"
)

type EventRepository struct {
	querier
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{querier{pool: pool}}
}

const eventColumns = `id, ledger_address, manager_address, artist_wallet, tx_signature,
	name, category, uri, city, venue, artist, event_date, event_time,
	capacity, tickets_remaining, is_ticket_transferable, created_at`

func (r *EventRepository) Insert(ctx context.Context, rec *domain.EventRecord) (*domain.EventRow, error) {
	const query = `
INSERT INTO events (ledger_address, manager_address, artist_wallet, tx_signature,
	name, category, uri, city, venue, artist, event_date, event_time,
	capacity, tickets_remaining, is_ticket_transferable)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $14)
RETURNING ` + eventColumns

	m := rec.Metadata
	row, err := scanEvent(r.queryRow(ctx, query,
		rec.LedgerAddress.String(), rec.ManagerAddress.String(), rec.ArtistWallet.String(), rec.Signature.String(),
		m.Name, m.Category, m.URI, m.City, m.Venue, m.Artist, m.Date, m.Time,
		int64(m.Capacity), m.IsTicketTransferable,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateLedgerAddress
		}
		return nil, fmt.Errorf("insert event %s: %w", rec.LedgerAddress, err)
	}
	return row, nil
}

func (r *EventRepository) GetByAddress(ctx context.Context, ledgerAddress string) (*domain.EventRow, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ledger_address = $1`
	row, err := scanEvent(r.queryRow(ctx, query, ledgerAddress))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", ledgerAddress, err)
	}
	return row, nil
}

// lockForTicket 锁定活动行并返回 (id, 剩余票数)，只能在事务内调用
func (r *EventRepository) lockForTicket(ctx context.Context, ledgerAddress string) (int64, int64, error) {
	const query = `SELECT id, tickets_remaining FROM events WHERE ledger_address = $1 FOR UPDATE`
	var id, remaining int64
	if err := r.queryRow(ctx, query, ledgerAddress).Scan(&id, &remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrEventNotFound
		}
		return 0, 0, fmt.Errorf("lock event %s: %w", ledgerAddress, err)
	}
	return id, remaining, nil
}

func (r *EventRepository) decrementRemaining(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `UPDATE events SET tickets_remaining = tickets_remaining - 1 WHERE id = $1 AND tickets_remaining > 0`, id)
	if err != nil {
		return fmt.Errorf("decrement tickets_remaining: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

func scanEvent(row pgx.Row) (*domain.EventRow, error) {
	var e domain.EventRow
	var capacity, remaining int64
	err := row.Scan(&e.ID, &e.LedgerAddress, &e.ManagerAddress, &e.ArtistWallet, &e.TxSignature,
		&e.Metadata.Name, &e.Metadata.Category, &e.Metadata.URI, &e.Metadata.City, &e.Metadata.Venue,
		&e.Metadata.Artist, &e.Metadata.Date, &e.Metadata.Time,
		&capacity, &remaining, &e.Metadata.IsTicketTransferable, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Metadata.Capacity = uint32(capacity)
	e.TicketsRemaining = uint32(remaining)
	return &e, nil
}
