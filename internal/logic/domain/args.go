package domain

// EventArgs 创建活动的参数，字段顺序与链上 CreateEventArgs 一致
type EventArgs struct {
	Name                 string `validate:"required,min=3,max=100"`
	Category             string `validate:"required,max=32"`
	URI                  string `validate:"omitempty,url,max=200"`
	City                 string `validate:"required,min=2,max=50"`
	Venue                string `validate:"required,min=3,max=100"`
	Artist               string `validate:"required,max=64"`
	Date                 string `validate:"required,max=32"`
	Time                 string `validate:"required,max=32"`
	Capacity             uint32 `validate:"gt=0"`
	IsTicketTransferable bool
}

// TicketArgs 铸造门票的参数。Price 为人类可读的 SOL 金额字符串（如 "0.5"），
// 进入指令前会被精确换算为 lamports，不经过浮点数。
type TicketArgs struct {
	Name           string `validate:"required,max=64"`
	URI            string `validate:"omitempty,url,max=200"`
	Price          string `validate:"required,max=32"`
	VenueAuthority string `validate:"omitempty,max=44"` // base58，为空时使用默认场馆地址
	Screen         Optional[string]
	Row            Optional[string]
	Seat           Optional[string]
}
