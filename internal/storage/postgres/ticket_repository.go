package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nf-tickets-sol/internal/logic/domain"
)

type TicketRepository struct {
	querier
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{querier{pool: pool}}
}

const ticketColumns = `id, event_id, ledger_address, owner_wallet, tx_signature, name, price_lamports,
	screen, seat_row, seat, created_at`

func (r *TicketRepository) insert(ctx context.Context, eventID int64, rec *domain.TicketRecord) (*domain.TicketRow, error) {
	if rec.PriceLamports > math.MaxInt64 {
		return nil, fmt.Errorf("price %d lamports exceeds column range", rec.PriceLamports)
	}
	const query = `
INSERT INTO tickets (event_id, ledger_address, owner_wallet, tx_signature, name, price_lamports, screen, seat_row, seat)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + ticketColumns

	row, err := scanTicket(r.queryRow(ctx, query,
		eventID, rec.LedgerAddress.String(), rec.OwnerAddress.String(), rec.Signature.String(),
		rec.Name, int64(rec.PriceLamports), rec.Screen, rec.Row, rec.Seat,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateLedgerAddress
		}
		return nil, fmt.Errorf("insert ticket %s: %w", rec.LedgerAddress, err)
	}
	return row, nil
}

func (r *TicketRepository) GetByAddress(ctx context.Context, ledgerAddress string) (*domain.TicketRow, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ledger_address = $1`
	row, err := scanTicket(r.queryRow(ctx, query, ledgerAddress))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", ledgerAddress, err)
	}
	return row, nil
}

func scanTicket(row pgx.Row) (*domain.TicketRow, error) {
	var t domain.TicketRow
	var price int64
	err := row.Scan(&t.ID, &t.EventID, &t.LedgerAddress, &t.OwnerWallet, &t.TxSignature, &t.Name, &price,
		&t.Screen, &t.Row, &t.Seat, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.PriceLamports = uint64(price)
	return &t, nil
}
