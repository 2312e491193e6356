// Package storagetest 提供与 postgres 实现语义一致的内存存储，供单元测试使用
package storagetest

import (
	"context"
	"sync"
	"time"

	"nf-tickets-sol/internal/logic/domain"
)

type Store struct {
	mu      sync.Mutex
	nextID  int64
	events  map[string]*domain.EventRow
	tickets map[string]*domain.TicketRow
	logs    []LogEntry

	// FailWrites 非空时所有写操作返回该错误（模拟数据库不可用）
	FailWrites error
}

type LogEntry struct {
	SignalID string
	Result   string
}

func New() *Store {
	return &Store{
		events:  make(map[string]*domain.EventRow),
		tickets: make(map[string]*domain.TicketRow),
	}
}

func (s *Store) SetFailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailWrites = err
}

func (s *Store) RecordEvent(ctx context.Context, rec *domain.EventRecord) (*domain.EventRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return nil, s.FailWrites
	}
	addr := rec.LedgerAddress.String()
	if _, ok := s.events[addr]; ok {
		return nil, domain.ErrDuplicateLedgerAddress
	}
	s.nextID++
	row := &domain.EventRow{
		ID:               s.nextID,
		LedgerAddress:    addr,
		ManagerAddress:   rec.ManagerAddress.String(),
		ArtistWallet:     rec.ArtistWallet.String(),
		TxSignature:      rec.Signature.String(),
		Metadata:         rec.Metadata,
		TicketsRemaining: rec.Metadata.Capacity,
		CreatedAt:        time.Now(),
	}
	s.events[addr] = row
	cp := *row
	return &cp, nil
}

func (s *Store) RecordTicket(ctx context.Context, rec *domain.TicketRecord) (*domain.TicketRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return nil, s.FailWrites
	}
	addr := rec.LedgerAddress.String()
	if _, ok := s.tickets[addr]; ok {
		return nil, domain.ErrDuplicateLedgerAddress
	}
	event, ok := s.events[rec.EventAddress.String()]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if event.TicketsRemaining == 0 {
		return nil, domain.ErrSoldOut
	}
	event.TicketsRemaining--
	s.nextID++
	row := &domain.TicketRow{
		ID:            s.nextID,
		EventID:       event.ID,
		LedgerAddress: addr,
		OwnerWallet:   rec.OwnerAddress.String(),
		TxSignature:   rec.Signature.String(),
		Name:          rec.Name,
		PriceLamports: rec.PriceLamports,
		Screen:        rec.Screen,
		Row:           rec.Row,
		Seat:          rec.Seat,
		CreatedAt:     time.Now(),
	}
	s.tickets[addr] = row
	cp := *row
	return &cp, nil
}

func (s *Store) EventByAddress(ctx context.Context, ledgerAddress string) (*domain.EventRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.events[ledgerAddress]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Store) TicketByAddress(ctx context.Context, ledgerAddress string) (*domain.TicketRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tickets[ledgerAddress]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Store) AppendReconciliation(ctx context.Context, signalID, kind, signature, address, result, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{SignalID: signalID, Result: result})
	return nil
}

func (s *Store) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Store) TicketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}
