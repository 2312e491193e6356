package domain

import (
	"time"

	"nf-tickets-sol/internal/types"
)

// RecordKind 链下镜像记录的类别
type RecordKind uint8

const (
	RecordKindEvent  RecordKind = 1
	RecordKindTicket RecordKind = 2
)

func (k RecordKind) String() string {
	switch k {
	case RecordKindEvent:
		return "event"
	case RecordKindTicket:
		return "ticket"
	default:
		return "unknown"
	}
}

// EventMetadata 活动元数据（链下副本字段，可 borsh 编码）
type EventMetadata struct {
	Name                 string
	Category             string
	URI                  string
	City                 string
	Venue                string
	Artist               string
	Date                 string
	Time                 string
	Capacity             uint32
	IsTicketTransferable bool
}

func MetadataFromArgs(a EventArgs) EventMetadata {
	return EventMetadata{
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

// EventRecord 写入链下 events 表所需的全部信息，只能在链上确认后构造
type EventRecord struct {
	LedgerAddress  types.Pubkey
	ManagerAddress types.Pubkey
	ArtistWallet   types.Pubkey
	Signature      types.Signature
	Metadata       EventMetadata
}

// TicketRecord 写入链下 tickets 表所需的全部信息
type TicketRecord struct {
	LedgerAddress types.Pubkey
	OwnerAddress  types.Pubkey
	EventAddress  types.Pubkey
	Signature     types.Signature
	Name          string
	PriceLamports uint64
	Screen        *string
	Row           *string
	Seat          *string
}

// EventRow 链下 events 表的一行
type EventRow struct {
	ID               int64
	LedgerAddress    string
	ManagerAddress   string
	ArtistWallet     string
	TxSignature      string
	Metadata         EventMetadata
	TicketsRemaining uint32
	CreatedAt        time.Time
}

// TicketRow 链下 tickets 表的一行
type TicketRow struct {
	ID            int64
	EventID       int64
	LedgerAddress string
	OwnerWallet   string
	TxSignature   string
	Name          string
	PriceLamports uint64
	Screen        *string
	Row           *string
	Seat          *string
	CreatedAt     time.Time
}
