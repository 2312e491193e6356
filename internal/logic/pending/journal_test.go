package pending

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
	"nf-tickets-sol/internal/utils"
)

func sampleAttempt(actor types.Pubkey, n byte, createdAt int64) *Attempt {
	var sig types.Signature
	sig[0] = n
	var addr types.Pubkey
	addr[0] = n
	seat := "A1"
	return &Attempt{
		Signature:            sig,
		Actor:                actor,
		Kind:                 domain.RecordKindTicket,
		Address:              addr,
		LastValidBlockHeight: 1150,
		Status:               AttemptPending,
		CreatedAt:            createdAt,
		Ticket: &domain.TicketRecord{
			LedgerAddress: addr,
			OwnerAddress:  actor,
			Signature:     sig,
			Name:          "GA",
			PriceLamports: 500_000_000,
			Seat:          &seat,
		},
	}
}

func exerciseJournal(t *testing.T, j Journal) {
	ctx := context.Background()
	actor := consts.DefaultVenueAuthority

	first := sampleAttempt(actor, 1, 100)
	second := sampleAttempt(actor, 2, 50)
	require.NoError(t, j.Begin(ctx, first))
	require.NoError(t, j.Begin(ctx, second))

	list, err := j.Unresolved(ctx, actor)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Signature, list[0].Signature)
	assert.Equal(t, first.Signature, list[1].Signature)
	require.NotNil(t, list[1].Ticket)
	require.NotNil(t, list[1].Ticket.Seat)
	assert.Equal(t, "A1", *list[1].Ticket.Seat)
	assert.Nil(t, list[1].Ticket.Row)
	assert.Nil(t, list[1].Event)

	require.NoError(t, j.MarkUnknown(ctx, actor, first.Signature))
	list, err = j.Unresolved(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, AttemptUnknown, list[1].Status)

	var missing types.Signature
	missing[0] = 99
	assert.ErrorIs(t, j.MarkUnknown(ctx, actor, missing), ErrAttemptNotFound)

	require.NoError(t, j.Finish(ctx, actor, first.Signature))
	require.NoError(t, j.Finish(ctx, actor, second.Signature))
	list, err = j.Unresolved(ctx, actor)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryJournal(t *testing.T) {
	exerciseJournal(t, NewMemoryJournal())
}

func TestRedisJournal(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	rdb.Del(context.Background(), attemptPrefix+":"+consts.DefaultVenueAuthority.String())

	exerciseJournal(t, NewRedisJournal(rdb, time.Minute))
}

func TestAttemptPayload(t *testing.T) {
	a := sampleAttempt(consts.DefaultVenueAuthority, 7, 1)
	data, err := utils.EncodePayload(consts.PayloadPendingAttempt, *a)
	require.NoError(t, err)

	var out Attempt
	require.NoError(t, utils.DecodePayload(data, consts.PayloadPendingAttempt, &out))
	assert.Equal(t, *a, out)

	assert.Error(t, utils.DecodePayload(data, consts.PayloadReconcileSignal, &out))
}

func TestAttemptInFlight(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	a := sampleAttempt(consts.DefaultVenueAuthority, 1, now.Add(-time.Second).UnixMilli())

	assert.True(t, a.InFlight(now, 2*time.Second))
	assert.False(t, a.InFlight(now, 500*time.Millisecond), "stale pending is an orphan")

	a.Status = AttemptUnknown
	assert.False(t, a.InFlight(now, 2*time.Second))
}
