package instruction

import (
	"context"
	"fmt"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/cache"
	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/types"
)

// AccountReader 组装指令时唯一需要的链上读能力
type AccountReader interface {
	AccountExists(ctx context.Context, addr types.Pubkey) (bool, error)
}

// Batch 一笔原子交易所需的有序指令及一次性签名者
type Batch struct {
	Kind         domain.RecordKind
	Instructions []soltypes.Instruction
	// Signers 本批次生成的一次性 keypair（event / ticket），不包含 actor
	Signers []soltypes.Account
	// ManagerSetupIndex setup_manager 在 Instructions 中的下标，-1 表示未包含
	ManagerSetupIndex int

	Actor         types.Pubkey
	Manager       types.Pubkey
	Platform      types.Pubkey
	Treasury      types.Pubkey
	Event         types.Pubkey
	Ticket        types.Pubkey
	Artist        types.Pubkey
	PriceLamports uint64
}

func (b *Batch) IncludesManagerSetup() bool {
	return b.ManagerSetupIndex >= 0
}

// Composer 把业务参数转换为可提交的指令批次
type Composer struct {
	reader     AccountReader
	program    Program
	deriver    *pda.Deriver
	managers   *cache.ManagerCache
	newKeypair func() soltypes.Account
}

func NewComposer(reader AccountReader, deriver *pda.Deriver, managers *cache.ManagerCache) *Composer {
	return &Composer{
		reader:     reader,
		program:    Program{ID: deriver.ProgramID()},
		deriver:    deriver,
		managers:   managers,
		newKeypair: soltypes.NewAccount,
	}
}

func (c *Composer) Program() Program {
	return c.program
}

// ComposeCreateEvent 组装创建活动的批次：manager 不存在时在前面追加 setup_manager，
// 之后总是追加 create_event（新生成的一次性 event keypair）。
// skipSetup 为 true 时不查询链上，直接省略 setup_manager（并发创建被拒后的重试路径）。
func (c *Composer) ComposeCreateEvent(ctx context.Context, actor types.Pubkey, args domain.EventArgs, skipSetup bool) (*Batch, error) {
	const op = "instruction.ComposeCreateEvent"
	if err := domain.ValidateArgs(op, args); err != nil {
		return nil, err
	}

	manager, _, err := c.deriver.Manager(actor)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Kind:              domain.RecordKindEvent,
		ManagerSetupIndex: -1,
		Actor:             actor,
		Manager:           manager,
		Artist:            actor,
	}

	if !skipSetup {
		exists, err := c.managerExists(ctx, manager)
		if err != nil {
			return nil, fmt.Errorf("%s: check manager %s: %w", op, manager, err)
		}
		if !exists {
			batch.ManagerSetupIndex = len(batch.Instructions)
			batch.Instructions = append(batch.Instructions, c.program.SetupManager(actor, manager))
		}
	}

	eventKey := c.newKeypair()
	batch.Event = types.PubkeyFromCommon(eventKey.PublicKey)
	ix, err := c.program.CreateEvent(actor, manager, batch.Event, actor, eventWireArgs(args))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, op, err)
	}
	batch.Instructions = append(batch.Instructions, ix)
	batch.Signers = append(batch.Signers, eventKey)
	return batch, nil
}

// ComposeMintTicket 组装单条 create_ticket 的批次。
// manager 由 artist 派生；价格按精确十进制换算为 lamports。
func (c *Composer) ComposeMintTicket(buyer, artist, event types.Pubkey, args domain.TicketArgs) (*Batch, error) {
	const op = "instruction.ComposeMintTicket"
	if err := domain.ValidateArgs(op, args); err != nil {
		return nil, err
	}
	lamports, err := ToLamports(args.Price)
	if err != nil {
		return nil, err
	}

	venue := consts.DefaultVenueAuthority
	if args.VenueAuthority != "" {
		if venue, err = pda.ParseAddress(op, args.VenueAuthority); err != nil {
			return nil, err
		}
	}

	manager, _, err := c.deriver.Manager(artist)
	if err != nil {
		return nil, err
	}
	platform, _, err := c.deriver.Platform()
	if err != nil {
		return nil, err
	}
	treasury, _, err := c.deriver.Treasury()
	if err != nil {
		return nil, err
	}

	ticketKey := c.newKeypair()
	acc := TicketAccounts{
		Buyer:    buyer,
		Manager:  manager,
		Platform: platform,
		Event:    event,
		Ticket:   types.PubkeyFromCommon(ticketKey.PublicKey),
		Treasury: treasury,
		Artist:   artist,
	}
	ix, err := c.program.CreateTicket(acc, ticketWireArgs(args, lamports, venue))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, op, err)
	}

	return &Batch{
		Kind:              domain.RecordKindTicket,
		Instructions:      []soltypes.Instruction{ix},
		Signers:           []soltypes.Account{ticketKey},
		ManagerSetupIndex: -1,
		Actor:             buyer,
		Manager:           manager,
		Platform:          platform,
		Treasury:          treasury,
		Event:             event,
		Ticket:            acc.Ticket,
		Artist:            artist,
		PriceLamports:     lamports,
	}, nil
}

// MarkManagerExists 交易确认后调用，后续创建不再查询链上
func (c *Composer) MarkManagerExists(manager types.Pubkey) {
	if c.managers != nil {
		c.managers.MarkExists(manager)
	}
}

func (c *Composer) managerExists(ctx context.Context, manager types.Pubkey) (bool, error) {
	if c.managers != nil && c.managers.Exists(manager) {
		return true, nil
	}
	exists, err := c.reader.AccountExists(ctx, manager)
	if err != nil {
		return false, err
	}
	if exists {
		c.MarkManagerExists(manager)
	}
	return exists, nil
}
