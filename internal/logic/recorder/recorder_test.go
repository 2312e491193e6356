package recorder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/reconcile"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/storage/storagetest"
	"nf-tickets-sol/internal/types"
)

type durableQueue struct {
	*reconcile.MemoryQueue
}

func (durableQueue) Durable() bool { return true }

func eventRecord(n byte) *domain.EventRecord {
	var addr types.Pubkey
	addr[0] = n
	var sig types.Signature
	sig[0] = n
	return &domain.EventRecord{
		LedgerAddress:  addr,
		ManagerAddress: consts.DefaultVenueAuthority,
		ArtistWallet:   consts.DefaultVenueAuthority,
		Signature:      sig,
		Metadata:       domain.EventMetadata{Name: "Night Show", Capacity: 1},
	}
}

func confirmedTracker(t *testing.T) *recorder.Tracker {
	tr := recorder.NewTracker()
	require.NoError(t, tr.Advance(domain.StateLedgerConfirmed))
	return tr
}

func TestTracker_Transitions(t *testing.T) {
	tr := recorder.NewTracker()
	assert.Equal(t, domain.StateLedgerPending, tr.State())
	assert.Error(t, tr.Advance(domain.StateRecorded))
	require.NoError(t, tr.Advance(domain.StateLedgerConfirmed))
	assert.Error(t, tr.Advance(domain.StateLedgerFailed))
	require.NoError(t, tr.Advance(domain.StateRecordedPending))
	require.NoError(t, tr.Advance(domain.StateRecorded))
	assert.True(t, tr.State().Terminal())
	assert.Len(t, tr.History(), 4)
}

func TestRecorder_RefusesBeforeConfirmation(t *testing.T) {
	store := storagetest.New()
	r := recorder.New(store, reconcile.NewMemoryQueue(), nil)

	_, err := r.RecordEvent(context.Background(), recorder.NewTracker(), eventRecord(1))
	require.Error(t, err)
	assert.Equal(t, 0, store.EventCount())
}

func TestRecorder_RecordsAfterConfirmation(t *testing.T) {
	store := storagetest.New()
	r := recorder.New(store, reconcile.NewMemoryQueue(), nil)
	tr := confirmedTracker(t)
	rec := eventRecord(1)

	row, err := r.RecordEvent(context.Background(), tr, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.LedgerAddress.String(), row.LedgerAddress)
	assert.Equal(t, rec.Signature.String(), row.TxSignature)
	assert.Equal(t, domain.StateRecorded, tr.State())

	// 重复写入视为幂等成功
	again, err := r.RecordEvent(context.Background(), confirmedTracker(t), rec)
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, 1, store.EventCount())
}

func TestRecorder_PersistenceFailureEmitsSignal(t *testing.T) {
	store := storagetest.New()
	store.SetFailWrites(errors.New("connection refused"))
	queue := reconcile.NewMemoryQueue()
	r := recorder.New(store, reconcile.NewFanout(reconcile.LogSink{}, durableQueue{queue}), nil)
	tr := confirmedTracker(t)
	rec := eventRecord(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RecordEvent(ctx, tr, rec)
	require.Error(t, err)

	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindPersistenceAfterConfirmation, e.Kind)
	assert.Equal(t, rec.Signature.String(), e.Signature)
	assert.Equal(t, rec.LedgerAddress.String(), e.Address)
	assert.Equal(t, domain.StateRecordedPending, tr.State())
	assert.NotErrorIs(t, err, recorder.ErrSignalUndelivered)

	entries, err := queue.Peek(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RecordKindEvent, entries[0].Signal.Kind)
	assert.Equal(t, rec.Signature, entries[0].Signal.Signature)
	require.NotNil(t, entries[0].Signal.Event)
	assert.Equal(t, "Night Show", entries[0].Signal.Event.Metadata.Name)
}

func TestRecorder_SignalFailureStillReported(t *testing.T) {
	store := storagetest.New()
	store.SetFailWrites(errors.New("db down"))
	queue := reconcile.NewMemoryQueue()
	queue.Fail = errors.New("redis down")
	r := recorder.New(store, queue, nil)

	_, err := r.RecordEvent(context.Background(), confirmedTracker(t), eventRecord(3))
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistenceAfterConfirmation, domain.KindOf(err))
	assert.ErrorContains(t, err, "redis down")
	assert.ErrorIs(t, err, recorder.ErrSignalUndelivered)
}

func TestRecorder_InProcessQueueOnlyIsUndelivered(t *testing.T) {
	store := storagetest.New()
	store.SetFailWrites(errors.New("connection refused"))
	queue := reconcile.NewMemoryQueue()
	r := recorder.New(store, reconcile.NewFanout(reconcile.LogSink{}, queue), nil)

	_, err := r.RecordEvent(context.Background(), confirmedTracker(t), eventRecord(5))
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistenceAfterConfirmation, domain.KindOf(err))
	assert.ErrorIs(t, err, recorder.ErrSignalUndelivered)
	depth, _ := queue.Depth(context.Background())
	assert.Equal(t, int64(1), depth)
}

func TestRecorder_TicketRequiresEvent(t *testing.T) {
	store := storagetest.New()
	queue := reconcile.NewMemoryQueue()
	r := recorder.New(store, queue, nil)

	ev := eventRecord(4)
	_, err := r.RecordEvent(context.Background(), confirmedTracker(t), ev)
	require.NoError(t, err)

	var ticketAddr types.Pubkey
	ticketAddr[0] = 40
	ticket := &domain.TicketRecord{
		LedgerAddress: ticketAddr,
		OwnerAddress:  consts.DefaultVenueAuthority,
		EventAddress:  ev.LedgerAddress,
		Name:          "GA",
		PriceLamports: 500_000_000,
	}
	row, err := r.RecordTicket(context.Background(), confirmedTracker(t), ticket)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), row.PriceLamports)

	evRow, err := store.EventByAddress(context.Background(), ev.LedgerAddress.String())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), evRow.TicketsRemaining)
}
