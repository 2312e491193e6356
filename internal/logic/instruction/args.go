package instruction

import (
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

// CreateEventArgs 链上 create_event 的参数布局（borsh，字段顺序不可调整）
type CreateEventArgs struct {
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

// CreateTicketArgs 链上 create_ticket 的参数布局。
// 指针字段按 borsh Option 编码：nil 写 0x00，非 nil 写 0x01 + 值。
type CreateTicketArgs struct {
	Name           string
	URI            string
	Price          uint64
	VenueAuthority types.Pubkey
	Screen         *string
	Row            *string
	Seat           *string
}

func eventWireArgs(a domain.EventArgs) CreateEventArgs {
	return CreateEventArgs{
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

func ticketWireArgs(a domain.TicketArgs, lamports uint64, venue types.Pubkey) CreateTicketArgs {
	return CreateTicketArgs{
		Name:           a.Name,
		URI:            a.URI,
		Price:          lamports,
		VenueAuthority: venue,
		Screen:         a.Screen.Ptr(),
		Row:            a.Row.Ptr(),
		Seat:           a.Seat.Ptr(),
	}
}
