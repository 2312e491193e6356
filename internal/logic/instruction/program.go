package instruction

import (
	"fmt"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/types"
)

// Program 负责把已派生好的地址与参数拼成具体指令，不做任何网络请求
type Program struct {
	ID types.Pubkey
}

func meta(pk types.Pubkey, signer, writable bool) soltypes.AccountMeta {
	return soltypes.AccountMeta{PubKey: pk.Common(), IsSigner: signer, IsWritable: writable}
}

func encode(disc [DiscriminatorSize]byte, args interface{}) ([]byte, error) {
	if args == nil {
		return disc[:], nil
	}
	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, fmt.Errorf("borsh serialize args: %w", err)
	}
	data := make([]byte, 0, DiscriminatorSize+len(body))
	data = append(data, disc[:]...)
	return append(data, body...), nil
}

// SetupManager accounts: signer(w,s) payer(w,s) manager(w) system_program
func (p Program) SetupManager(actor, manager types.Pubkey) soltypes.Instruction {
	data, _ := encode(discSetupManager, nil)
	return soltypes.Instruction{
		ProgramID: p.ID.Common(),
		Accounts: []soltypes.AccountMeta{
			meta(actor, true, true),
			meta(actor, true, true),
			meta(manager, false, true),
			meta(consts.SystemProgram, false, false),
		},
		Data: data,
	}
}

// CreateEvent accounts: signer(w,s) payer(w,s) manager(w) event(w,s) system_program mpl_core_program artist
func (p Program) CreateEvent(actor, manager, event, artist types.Pubkey, args CreateEventArgs) (soltypes.Instruction, error) {
	data, err := encode(discCreateEvent, args)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return soltypes.Instruction{
		ProgramID: p.ID.Common(),
		Accounts: []soltypes.AccountMeta{
			meta(actor, true, true),
			meta(actor, true, true),
			meta(manager, false, true),
			meta(event, true, true),
			meta(consts.SystemProgram, false, false),
			meta(consts.MplCoreProgram, false, false),
			meta(artist, false, false),
		},
		Data: data,
	}, nil
}

// TicketAccounts create_ticket 引用的全部账户
type TicketAccounts struct {
	Buyer    types.Pubkey
	Manager  types.Pubkey
	Platform types.Pubkey
	Event    types.Pubkey
	Ticket   types.Pubkey
	Treasury types.Pubkey
	Artist   types.Pubkey
}

// CreateTicket accounts: signer(w,s) payer(w,s) manager platform event(w) ticket(w,s)
// treasury(w) system_program mpl_core_program artist(w)
func (p Program) CreateTicket(acc TicketAccounts, args CreateTicketArgs) (soltypes.Instruction, error) {
	data, err := encode(discCreateTicket, args)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return soltypes.Instruction{
		ProgramID: p.ID.Common(),
		Accounts: []soltypes.AccountMeta{
			meta(acc.Buyer, true, true),
			meta(acc.Buyer, true, true),
			meta(acc.Manager, false, false),
			meta(acc.Platform, false, false),
			meta(acc.Event, false, true),
			meta(acc.Ticket, true, true),
			meta(acc.Treasury, false, true),
			meta(consts.SystemProgram, false, false),
			meta(consts.MplCoreProgram, false, false),
			meta(acc.Artist, false, true),
		},
		Data: data,
	}, nil
}
