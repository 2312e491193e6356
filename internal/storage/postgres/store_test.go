package postgres_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/storage/postgres"
	"nf-tickets-sol/internal/testutil"
	"nf-tickets-sol/internal/types"
)

func setupStore(t *testing.T) (*postgres.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	return postgres.NewStore(pool), ctx
}

func pubkey(n byte) types.Pubkey {
	var pk types.Pubkey
	pk[0], pk[31] = n, n
	return pk
}

func signature(n byte) types.Signature {
	var s types.Signature
	s[0], s[63] = n, n
	return s
}

func eventRecord(n byte, capacity uint32) *domain.EventRecord {
	return &domain.EventRecord{
		LedgerAddress:  pubkey(n),
		ManagerAddress: consts.DefaultVenueAuthority,
		ArtistWallet:   consts.DefaultVenueAuthority,
		Signature:      signature(n),
		Metadata: domain.EventMetadata{
			Name: "Night Show", Category: "music", City: "Lisbon", Venue: "Coliseu",
			Artist: "The Band", Date: "2026-11-01", Time: "21:00", Capacity: capacity,
		},
	}
}

func TestStore_EventUniqueLedgerAddress(t *testing.T) {
	store, ctx := setupStore(t)
	rec := eventRecord(1, 10)

	row, err := store.RecordEvent(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.LedgerAddress.String(), row.LedgerAddress)
	assert.Equal(t, uint32(10), row.TicketsRemaining)

	_, err = store.RecordEvent(ctx, rec)
	assert.ErrorIs(t, err, domain.ErrDuplicateLedgerAddress)

	got, err := store.EventByAddress(ctx, rec.LedgerAddress.String())
	require.NoError(t, err)
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, rec.Signature.String(), got.TxSignature)

	_, err = store.EventByAddress(ctx, pubkey(99).String())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestStore_EventMaxCapacity(t *testing.T) {
	store, ctx := setupStore(t)
	rec := eventRecord(4, math.MaxUint32)

	row, err := store.RecordEvent(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), row.Metadata.Capacity)
	assert.Equal(t, uint32(math.MaxUint32), row.TicketsRemaining)
}

func TestStore_TicketDecrementsRemaining(t *testing.T) {
	store, ctx := setupStore(t)
	ev := eventRecord(2, 1)
	_, err := store.RecordEvent(ctx, ev)
	require.NoError(t, err)

	seat := "A1"
	ticket := &domain.TicketRecord{
		LedgerAddress: pubkey(20),
		OwnerAddress:  consts.DefaultVenueAuthority,
		EventAddress:  ev.LedgerAddress,
		Signature:     signature(20),
		Name:          "GA",
		PriceLamports: 500_000_000,
		Seat:          &seat,
	}
	row, err := store.RecordTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), row.PriceLamports)
	require.NotNil(t, row.Seat)
	assert.Equal(t, "A1", *row.Seat)
	assert.Nil(t, row.Row)

	_, err = store.RecordTicket(ctx, ticket)
	assert.ErrorIs(t, err, domain.ErrDuplicateLedgerAddress)

	second := *ticket
	second.LedgerAddress = pubkey(21)
	_, err = store.RecordTicket(ctx, &second)
	assert.ErrorIs(t, err, domain.ErrSoldOut)

	evRow, err := store.EventByAddress(ctx, ev.LedgerAddress.String())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), evRow.TicketsRemaining)

	orphan := *ticket
	orphan.LedgerAddress = pubkey(22)
	orphan.EventAddress = pubkey(77)
	_, err = store.RecordTicket(ctx, &orphan)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestStore_ConcurrentDuplicateInsert(t *testing.T) {
	store, ctx := setupStore(t)
	rec := eventRecord(3, 5)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.RecordEvent(ctx, rec)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateLedgerAddress)
	}
	assert.Equal(t, 1, ok)
}

func TestStore_ReconciliationLog(t *testing.T) {
	store, ctx := setupStore(t)
	err := store.AppendReconciliation(ctx, uuid.NewString(), "event", signature(4).String(), pubkey(4).String(), "recorded", "")
	assert.NoError(t, err)
}
