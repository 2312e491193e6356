package instruction

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"nf-tickets-sol/internal/types"
)

var ErrNotProgramInstruction = errors.New("not a recognised program instruction")

// Decoded 从已上链指令中还原出的地址与参数（回放 / 对账使用）
type Decoded struct {
	Name string

	Signer   types.Pubkey
	Manager  types.Pubkey
	Event    types.Pubkey
	Ticket   types.Pubkey
	Platform types.Pubkey
	Treasury types.Pubkey
	Artist   types.Pubkey

	EventArgs  *CreateEventArgs
	TicketArgs *CreateTicketArgs
}

// Decode 按判别码识别三条程序指令。programID 不匹配或判别码未知时返回 ErrNotProgramInstruction。
func Decode(programID, ixProgram types.Pubkey, accounts []types.Pubkey, data []byte) (*Decoded, error) {
	if ixProgram != programID || len(data) < DiscriminatorSize {
		return nil, ErrNotProgramInstruction
	}
	disc, body := data[:DiscriminatorSize], data[DiscriminatorSize:]

	switch {
	case bytes.Equal(disc, discSetupManager[:]):
		if len(accounts) < 4 {
			return nil, fmt.Errorf("%s: expected 4 accounts, got %d", NameSetupManager, len(accounts))
		}
		return &Decoded{Name: NameSetupManager, Signer: accounts[0], Manager: accounts[2]}, nil

	case bytes.Equal(disc, discCreateEvent[:]):
		if len(accounts) < 7 {
			return nil, fmt.Errorf("%s: expected 7 accounts, got %d", NameCreateEvent, len(accounts))
		}
		var args CreateEventArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return nil, fmt.Errorf("%s: decode args: %w", NameCreateEvent, err)
		}
		return &Decoded{
			Name:      NameCreateEvent,
			Signer:    accounts[0],
			Manager:   accounts[2],
			Event:     accounts[3],
			Artist:    accounts[6],
			EventArgs: &args,
		}, nil

	case bytes.Equal(disc, discCreateTicket[:]):
		if len(accounts) < 10 {
			return nil, fmt.Errorf("%s: expected 10 accounts, got %d", NameCreateTicket, len(accounts))
		}
		var args CreateTicketArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return nil, fmt.Errorf("%s: decode args: %w", NameCreateTicket, err)
		}
		return &Decoded{
			Name:       NameCreateTicket,
			Signer:     accounts[0],
			Manager:    accounts[2],
			Platform:   accounts[3],
			Event:      accounts[4],
			Ticket:     accounts[5],
			Treasury:   accounts[6],
			Artist:     accounts[9],
			TicketArgs: &args,
		}, nil
	}
	return nil, ErrNotProgramInstruction
}
