package pending

import (
	"context"
	"sort"
	"sync"

	"nf-tickets-sol/internal/types"
)

// MemoryJournal 进程内实现，未配置 Redis 时使用（进程退出即丢失）
type MemoryJournal struct {
	mu       sync.Mutex
	attempts map[types.Pubkey]map[types.Signature]Attempt
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{attempts: make(map[types.Pubkey]map[types.Signature]Attempt)}
}

func (m *MemoryJournal) Begin(ctx context.Context, a *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byActor, ok := m.attempts[a.Actor]
	if !ok {
		byActor = make(map[types.Signature]Attempt)
		m.attempts[a.Actor] = byActor
	}
	byActor[a.Signature] = *a
	return nil
}

func (m *MemoryJournal) MarkUnknown(ctx context.Context, actor types.Pubkey, sig types.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[actor][sig]
	if !ok {
		return ErrAttemptNotFound
	}
	a.Status = AttemptUnknown
	m.attempts[actor][sig] = a
	return nil
}

func (m *MemoryJournal) Finish(ctx context.Context, actor types.Pubkey, sig types.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byActor, ok := m.attempts[actor]; ok {
		delete(byActor, sig)
		if len(byActor) == 0 {
			delete(m.attempts, actor)
		}
	}
	return nil
}

func (m *MemoryJournal) Unresolved(ctx context.Context, actor types.Pubkey) ([]*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Attempt, 0, len(m.attempts[actor]))
	for _, a := range m.attempts[actor] {
		cp := a
		out = append(out, &cp)
	}
	sortAttempts(out)
	return out, nil
}

func sortAttempts(list []*Attempt) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
}
