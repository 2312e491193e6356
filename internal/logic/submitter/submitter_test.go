package submitter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/cache"
	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/ledger/ledgertest"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/logic/submitter"
	"nf-tickets-sol/internal/types"
)

type fixture struct {
	ledger   *ledgertest.Ledger
	composer *instruction.Composer
	sub      *submitter.Submitter
	actor    soltypes.Account
}

func newFixture(opt submitter.Option) *fixture {
	program := consts.NFTicketsDevnetProgram
	l := ledgertest.New(program)
	if opt.PollInterval == 0 {
		opt.PollInterval = 5 * time.Millisecond
	}
	if opt.ConfirmTimeout == 0 {
		opt.ConfirmTimeout = 2 * time.Second
	}
	return &fixture{
		ledger:   l,
		composer: instruction.NewComposer(l, pda.NewDeriver(program), cache.NewManagerCache(16)),
		sub:      submitter.New(l, opt, nil),
		actor:    soltypes.NewAccount(),
	}
}

func (f *fixture) actorKey() types.Pubkey {
	return types.PubkeyFromCommon(f.actor.PublicKey)
}

func eventArgs() domain.EventArgs {
	return domain.EventArgs{
		Name: "Night Show", Category: "music", City: "Lisbon", Venue: "Coliseu",
		Artist: "The Band", Date: "2026-11-01", Time: "21:00", Capacity: 2,
	}
}

func (f *fixture) prepareEvent(t *testing.T) *submitter.Prepared {
	batch, err := f.composer.ComposeCreateEvent(context.Background(), f.actorKey(), eventArgs(), false)
	require.NoError(t, err)
	p, err := f.sub.Prepare(context.Background(), "create_event", f.actor, batch)
	require.NoError(t, err)
	return p
}

func TestSendAndConfirm_Confirmed(t *testing.T) {
	f := newFixture(submitter.Option{})
	p := f.prepareEvent(t)
	assert.False(t, p.Signature.IsZero())

	receipt, err := f.sub.SendAndConfirm(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.Signature, receipt.Signature)
	assert.NotNil(t, f.ledger.Account(p.Batch.Manager))
	assert.NotNil(t, f.ledger.Account(p.Batch.Event))
}

func TestSendAndConfirm_DuplicateManagerRejected(t *testing.T) {
	f := newFixture(submitter.Option{})
	_, err := f.sub.SendAndConfirm(context.Background(), f.prepareEvent(t))
	require.NoError(t, err)

	// 绕过存在性检查，强行再带一次 setup_manager
	stale := f.prepareEvent(t)
	manager := stale.Batch.Manager
	ixEvent := stale.Batch.Instructions[len(stale.Batch.Instructions)-1]
	batch := &instruction.Batch{
		Kind:              domain.RecordKindEvent,
		Instructions:      []soltypes.Instruction{f.composer.Program().SetupManager(f.actorKey(), manager), ixEvent},
		Signers:           stale.Batch.Signers,
		ManagerSetupIndex: 0,
		Manager:           manager,
		Event:             stale.Batch.Event,
	}
	p, err := f.sub.Prepare(context.Background(), "create_event", f.actor, batch)
	require.NoError(t, err)

	_, err = f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindAccountAlreadyExists, e.Kind)
	assert.Equal(t, 0, e.Instruction)
	assert.Equal(t, p.Signature.String(), e.Signature)
	assert.Nil(t, f.ledger.Account(batch.Event))
}

func TestSendAndConfirm_AtomicBatch(t *testing.T) {
	f := newFixture(submitter.Option{})
	manager, _, err := pda.NewDeriver(consts.NFTicketsDevnetProgram).Manager(f.actorKey())
	require.NoError(t, err)

	invalid := soltypes.Instruction{
		ProgramID: consts.NFTicketsDevnetProgram.Common(),
		Accounts:  []soltypes.AccountMeta{{PubKey: f.actor.PublicKey, IsSigner: true, IsWritable: true}},
		Data:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	batch := &instruction.Batch{
		Kind:              domain.RecordKindEvent,
		Instructions:      []soltypes.Instruction{f.composer.Program().SetupManager(f.actorKey(), manager), invalid},
		ManagerSetupIndex: 0,
		Manager:           manager,
	}
	p, err := f.sub.Prepare(context.Background(), "create_event", f.actor, batch)
	require.NoError(t, err)

	_, err = f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindLedgerSubmissionFailed, e.Kind)
	assert.Equal(t, 1, e.Instruction)

	exists, err := f.ledger.AccountExists(context.Background(), manager)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSendAndConfirm_RejectedAfterSend(t *testing.T) {
	f := newFixture(submitter.Option{})
	f.ledger.SkipPreflight = true

	// 未创建 manager 时直接 create_event
	batch, err := f.composer.ComposeCreateEvent(context.Background(), f.actorKey(), eventArgs(), true)
	require.NoError(t, err)
	p, err := f.sub.Prepare(context.Background(), "create_event", f.actor, batch)
	require.NoError(t, err)

	_, err = f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, domain.KindLedgerSubmissionFailed, domain.KindOf(err))
}

func TestSendAndConfirm_TimeoutIsUnknown(t *testing.T) {
	f := newFixture(submitter.Option{ConfirmTimeout: 50 * time.Millisecond})
	f.ledger.Hold = true
	p := f.prepareEvent(t)

	_, err := f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConfirmationTimeout, e.Kind)
	assert.Equal(t, p.Signature.String(), e.Signature)

	// 超时后交易仍可能上链
	f.ledger.Release()
	landed, expired, rejected, err := f.sub.CheckLanded(context.Background(), p.Signature, p.Blockhash.LastValidBlockHeight)
	require.NoError(t, err)
	assert.True(t, landed)
	assert.False(t, expired)
	assert.Nil(t, rejected)
}

func TestSendAndConfirm_ExpiredIsFailure(t *testing.T) {
	f := newFixture(submitter.Option{})
	f.ledger.Hold = true
	f.ledger.HeightStep = 100
	p := f.prepareEvent(t)

	_, err := f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, domain.KindLedgerSubmissionFailed, domain.KindOf(err))

	f.ledger.Drop()
	landed, expired, _, err := f.sub.CheckLanded(context.Background(), p.Signature, p.Blockhash.LastValidBlockHeight)
	require.NoError(t, err)
	assert.False(t, landed)
	assert.True(t, expired)
}

func TestSendAndConfirm_TransportErrorIsUnknown(t *testing.T) {
	f := newFixture(submitter.Option{})
	f.ledger.RejectNext = errors.New("connection reset by peer")
	p := f.prepareEvent(t)

	_, err := f.sub.SendAndConfirm(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, domain.KindConfirmationTimeout, domain.KindOf(err))
}

func TestSendAndConfirm_CancelIsUnknown(t *testing.T) {
	f := newFixture(submitter.Option{ConfirmTimeout: 10 * time.Second})
	f.ledger.Hold = true
	p := f.prepareEvent(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := f.sub.SendAndConfirm(ctx, p)
	require.Error(t, err)
	assert.Equal(t, domain.KindConfirmationTimeout, domain.KindOf(err))
}

func TestPrepare_EmptyBatch(t *testing.T) {
	f := newFixture(submitter.Option{})
	_, err := f.sub.Prepare(context.Background(), "create_event", f.actor, &instruction.Batch{})
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
}
