package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReconciliationRepository 对账处理的审计记录（只追加）
type ReconciliationRepository struct {
	querier
}

func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{querier{pool: pool}}
}

func (r *ReconciliationRepository) Append(ctx context.Context, signalID, kind, signature, address, result, detail string) error {
	const query = `
INSERT INTO reconciliation_log (signal_id, kind, tx_signature, ledger_address, result, detail)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.exec(ctx, query, signalID, kind, signature, address, result, detail); err != nil {
		return fmt.Errorf("append reconciliation log %s: %w", signalID, err)
	}
	return nil
}
