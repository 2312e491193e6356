package ticketing

import (
	"context"
	"errors"
	"fmt"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/types"
)

// ReplayItem 交易中一条可记录的指令
type ReplayItem struct {
	Kind    domain.RecordKind
	Address types.Pubkey
	// AlreadyRecorded 回放前链下已有对应记录
	AlreadyRecorded bool
	// RecordedNow 本次回放补写成功
	RecordedNow bool
	Err         error
}

type ReplayReport struct {
	Signature types.Signature
	Slot      uint64
	Failed    bool
	Items     []ReplayItem
}

var ErrTransactionNotFound = errors.New("transaction not found")

// Replay 拉取已上链交易，解码其中的 create_event / create_ticket，
// 报告链下记录是否存在；record 为 true 时补写缺失的记录。
func (s *Service) Replay(ctx context.Context, sig types.Signature, record bool) (*ReplayReport, error) {
	tx, err := s.ledger.Transaction(ctx, sig)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, sig)
	}
	report := &ReplayReport{Signature: sig, Slot: tx.Slot, Failed: tx.Err != nil}
	if report.Failed {
		return report, nil
	}

	store := s.recorder.Store()
	for _, ci := range tx.Instructions {
		decoded, err := instruction.Decode(s.programID, ci.ProgramID, ci.Accounts, ci.Data)
		if err != nil {
			continue
		}
		switch decoded.Name {
		case instruction.NameCreateEvent:
			item := ReplayItem{Kind: domain.RecordKindEvent, Address: decoded.Event}
			_, lookupErr := store.EventByAddress(ctx, decoded.Event.String())
			item.AlreadyRecorded, item.Err = lookupResult(lookupErr, domain.ErrEventNotFound)
			if record && !item.AlreadyRecorded && item.Err == nil {
				rec := &domain.EventRecord{
					LedgerAddress:  decoded.Event,
					ManagerAddress: decoded.Manager,
					ArtistWallet:   decoded.Artist,
					Signature:      sig,
					Metadata:       metadataFromWire(decoded.EventArgs),
				}
				_, item.Err = s.recorder.RecordEvent(ctx, confirmedTracker(), rec)
				item.RecordedNow = item.Err == nil
			}
			report.Items = append(report.Items, item)

		case instruction.NameCreateTicket:
			item := ReplayItem{Kind: domain.RecordKindTicket, Address: decoded.Ticket}
			_, lookupErr := store.TicketByAddress(ctx, decoded.Ticket.String())
			item.AlreadyRecorded, item.Err = lookupResult(lookupErr, domain.ErrTicketNotFound)
			if record && !item.AlreadyRecorded && item.Err == nil {
				args := decoded.TicketArgs
				rec := &domain.TicketRecord{
					LedgerAddress: decoded.Ticket,
					OwnerAddress:  decoded.Signer,
					EventAddress:  decoded.Event,
					Signature:     sig,
					Name:          args.Name,
					PriceLamports: args.Price,
					Screen:        args.Screen,
					Row:           args.Row,
					Seat:          args.Seat,
				}
				_, item.Err = s.recorder.RecordTicket(ctx, confirmedTracker(), rec)
				item.RecordedNow = item.Err == nil
			}
			report.Items = append(report.Items, item)
		}
	}
	return report, nil
}

func lookupResult(err, notFound error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, notFound):
		return false, nil
	default:
		return false, err
	}
}

func confirmedTracker() *recorder.Tracker {
	tr := recorder.NewTracker()
	_ = tr.Advance(domain.StateLedgerConfirmed)
	return tr
}

func metadataFromWire(a *instruction.CreateEventArgs) domain.EventMetadata {
	return domain.EventMetadata{
		Name:                 a.Name,
		Category:             a.Category,
		URI:                  a.URI,
		City:                 a.City,
		Venue:                a.Venue,
		Artist:               a.Artist,
		Date:                 a.Date,
		Time:                 a.Time,
		Capacity:             a.Capacity,
		IsTicketTransferable: a.IsTicketTransferable,
	}
}
