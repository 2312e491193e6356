package pending

import (
	"time"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

// AttemptStatus 一次链上提交在 journal 中的状态
type AttemptStatus uint8

const (
	AttemptPending AttemptStatus = 1 // 🕒 已签名，发送 / 确认中
	AttemptUnknown AttemptStatus = 2 // ❓ 等待确认超时，结果未知
	AttemptLanded  AttemptStatus = 3 // ✅ 已确认上链
	AttemptExpired AttemptStatus = 4 // ❌ 区块哈希已过期且未上链
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptPending:
		return "pending"
	case AttemptUnknown:
		return "unknown"
	case AttemptLanded:
		return "landed"
	case AttemptExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Attempt 发送前写入的提交记录。Event / Ticket 保存确认后写库所需的全部信息，
// 使超时遗留的提交可以在稍后前向补记。
type Attempt struct {
	Signature            types.Signature
	Actor                types.Pubkey
	Kind                 domain.RecordKind
	Address              types.Pubkey // event 或 ticket 账户
	LastValidBlockHeight uint64
	Status               AttemptStatus
	CreatedAt            int64 // unix 毫秒
	Event                *domain.EventRecord
	Ticket               *domain.TicketRecord
}

func (a *Attempt) CreatedTime() time.Time {
	return time.UnixMilli(a.CreatedAt)
}

// InFlight 仍处于发送 / 等待确认中的提交：状态为 Pending 且未超过 staleAfter。
// 超过 staleAfter 仍为 Pending 的视为进程崩溃遗留，结果未知。
func (a *Attempt) InFlight(now time.Time, staleAfter time.Duration) bool {
	return a.Status == AttemptPending && now.Sub(a.CreatedTime()) < staleAfter
}
