package ticketing

import (
	"context"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/pending"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/types"
)

type CreateEventResult struct {
	Signature             types.Signature
	ManagerAddress        types.Pubkey
	EventAddress          types.Pubkey
	ManagerWasJustCreated bool
	State                 domain.RecordState
	EventID               int64
	Event                 *domain.EventRow
}

// CreateEventOnLedger 创建活动：manager 不存在时与 create_event 放在同一笔交易中原子创建。
// 并发创建 manager 导致的 "already in use" 视为良性，去掉 setup_manager 后重试一次。
func (s *Service) CreateEventOnLedger(ctx context.Context, actor soltypes.Account, args domain.EventArgs) (*CreateEventResult, error) {
	actorKey := types.PubkeyFromCommon(actor.PublicKey)
	if err := s.refuseIfUnresolved(ctx, opCreateEvent, actorKey); err != nil {
		return nil, err
	}

	batch, err := s.composer.ComposeCreateEvent(ctx, actorKey, args, false)
	if err != nil {
		return nil, err
	}

	var record *domain.EventRecord
	fill := func(a *pending.Attempt, sig types.Signature) {
		record = &domain.EventRecord{
			LedgerAddress:  batch.Event,
			ManagerAddress: batch.Manager,
			ArtistWallet:   batch.Artist,
			Signature:      sig,
			Metadata:       domain.MetadataFromArgs(args),
		}
		a.Address = batch.Event
		a.Event = record
	}

	sub, err := s.submit(ctx, opCreateEvent, actor, batch, fill)
	if err != nil && isBenignManagerRace(err, batch.ManagerSetupIndex) {
		logger.Infof("[Ticketing] manager 已被并发创建, 去掉 setup_manager 重试, actor=%s", actorKey)
		s.composer.MarkManagerExists(batch.Manager)
		if batch, err = s.composer.ComposeCreateEvent(ctx, actorKey, args, true); err != nil {
			return nil, err
		}
		sub, err = s.submit(ctx, opCreateEvent, actor, batch, fill)
	}

	result := &CreateEventResult{
		ManagerAddress: batch.Manager,
		EventAddress:   batch.Event,
		State:          domain.StateLedgerPending,
	}
	if sub != nil {
		result.Signature = sub.prepared.Signature
		result.State = sub.tracker.State()
	}
	if err != nil {
		return result, err
	}

	result.ManagerWasJustCreated = batch.IncludesManagerSetup()
	s.composer.MarkManagerExists(batch.Manager)

	row, err := s.recorder.RecordEvent(ctx, sub.tracker, record)
	s.settle(ctx, actorKey, sub.prepared.Signature, err)
	result.State = sub.tracker.State()
	if err != nil {
		return result, err
	}
	result.EventID = row.ID
	result.Event = row
	logger.Infof("[Ticketing] 活动创建完成, event=%s, manager=%s, sig=%s, newManager=%v",
		result.EventAddress, result.ManagerAddress, result.Signature, result.ManagerWasJustCreated)
	return result, nil
}

func isBenignManagerRace(err error, setupIndex int) bool {
	e, ok := domain.AsError(err)
	if !ok || setupIndex < 0 {
		return false
	}
	return e.Kind == domain.KindAccountAlreadyExists && e.Instruction == setupIndex
}
