package ticketing

import (
	"context"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/logic/pending"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/types"
)

type MintTicketResult struct {
	Signature     types.Signature
	TicketAddress types.Pubkey
	PriceLamports uint64
	State         domain.RecordState
	TicketID      int64
	Ticket        *domain.TicketRow
}

// MintTicketOnLedger 购票：buyer 付款并签名，manager 由 artist 派生
func (s *Service) MintTicketOnLedger(ctx context.Context, buyer soltypes.Account, artist, event string, args domain.TicketArgs) (*MintTicketResult, error) {
	const op = opMintTicket
	artistKey, err := pda.ParseAddress(op, artist)
	if err != nil {
		return nil, err
	}
	eventKey, err := pda.ParseAddress(op, event)
	if err != nil {
		return nil, err
	}
	buyerKey := types.PubkeyFromCommon(buyer.PublicKey)
	if err := s.refuseIfUnresolved(ctx, op, buyerKey); err != nil {
		return nil, err
	}

	batch, err := s.composer.ComposeMintTicket(buyerKey, artistKey, eventKey, args)
	if err != nil {
		return nil, err
	}

	var record *domain.TicketRecord
	sub, err := s.submit(ctx, op, buyer, batch, func(a *pending.Attempt, sig types.Signature) {
		record = &domain.TicketRecord{
			LedgerAddress: batch.Ticket,
			OwnerAddress:  buyerKey,
			EventAddress:  eventKey,
			Signature:     sig,
			Name:          args.Name,
			PriceLamports: batch.PriceLamports,
			Screen:        args.Screen.Ptr(),
			Row:           args.Row.Ptr(),
			Seat:          args.Seat.Ptr(),
		}
		a.Address = batch.Ticket
		a.Ticket = record
	})

	result := &MintTicketResult{
		TicketAddress: batch.Ticket,
		PriceLamports: batch.PriceLamports,
		State:         domain.StateLedgerPending,
	}
	if sub != nil {
		result.Signature = sub.prepared.Signature
		result.State = sub.tracker.State()
	}
	if err != nil {
		return result, err
	}

	row, err := s.recorder.RecordTicket(ctx, sub.tracker, record)
	s.settle(ctx, buyerKey, sub.prepared.Signature, err)
	result.State = sub.tracker.State()
	if err != nil {
		return result, err
	}
	result.TicketID = row.ID
	result.Ticket = row
	logger.Infof("[Ticketing] 门票铸造完成, ticket=%s, event=%s, lamports=%d, sig=%s",
		result.TicketAddress, eventKey, result.PriceLamports, result.Signature)
	return result, nil
}
