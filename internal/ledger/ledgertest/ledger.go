// Package ledgertest 提供进程内模拟账本：校验签名与区块哈希，
// 原子执行 setup_manager / create_event / create_ticket，并可注入拒绝、延迟确认、丢包等行为。
package ledgertest

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"nf-tickets-sol/internal/ledger"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/types"
)

// 与 anchor / 程序中错误码保持一致的几个自定义错误
const (
	ErrCodeAlreadyInUse          uint32 = 0
	ErrCodeAccountNotInitialized uint32 = 3012
	ErrCodeConstraintSeeds       uint32 = 2006
	ErrCodeSoldOut               uint32 = 6000
)

// BlockhashValidity 区块哈希有效的区块数
const BlockhashValidity = 150

type AccountKind int

const (
	AccountManager AccountKind = iota + 1
	AccountPlatform
	AccountTreasury
	AccountEvent
	AccountTicket
)

type Account struct {
	Kind     AccountKind
	Owner    types.Pubkey
	Event    types.Pubkey
	Capacity uint32
	Sold     uint32
	Price    uint64
	Lamports uint64
}

type txRecord struct {
	tx        ledger.ConfirmedTransaction
	confirmed bool
	err       *ledger.SendError
}

// Ledger 模拟账本，所有方法并发安全
type Ledger struct {
	mu sync.Mutex

	program     types.Pubkey
	deriver     *pda.Deriver
	accounts    map[types.Pubkey]*Account
	blockhashes map[string]uint64 // hash -> last valid block height
	height      uint64
	slot        uint64
	txs         map[types.Signature]*txRecord
	held        []soltypes.Transaction

	// Hold 为 true 时交易被接收但不执行、不可见，直到 Release 或 Drop
	Hold bool
	// SkipPreflight 为 true 时执行失败的交易不在发送时报错，而是作为失败状态上链
	SkipPreflight bool
	// RejectNext 非空时下一次发送直接返回该错误
	RejectNext error
	// HeightStep 每次查询区块高度时自动前进的高度，用于模拟区块哈希过期
	HeightStep uint64
	// StatusErr 非空时查询签名状态返回该错误（模拟 RPC 故障）
	StatusErr error

	sendCount int
}

func New(program types.Pubkey) *Ledger {
	l := &Ledger{
		program:     program,
		deriver:     pda.NewDeriver(program),
		accounts:    make(map[types.Pubkey]*Account),
		blockhashes: make(map[string]uint64),
		height:      1000,
		slot:        5000,
		txs:         make(map[types.Signature]*txRecord),
	}
	platform, _, _ := l.deriver.Platform()
	treasury, _, _ := l.deriver.Treasury()
	l.accounts[platform] = &Account{Kind: AccountPlatform}
	l.accounts[treasury] = &Account{Kind: AccountTreasury}
	return l
}

var _ ledger.Ledger = (*Ledger)(nil)

func (l *Ledger) AccountExists(ctx context.Context, addr types.Pubkey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[addr]
	return ok, nil
}

// Account 返回账户快照，不存在时返回 nil
func (l *Ledger) Account(addr types.Pubkey) *Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return nil
	}
	cp := *acc
	return &cp
}

// CountAccounts 统计某类账户数量
func (l *Ledger) CountAccounts(kind AccountKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, acc := range l.accounts {
		if acc.Kind == kind {
			n++
		}
	}
	return n
}

func (l *Ledger) SendCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendCount
}

func (l *Ledger) LatestBlockhash(ctx context.Context) (ledger.Blockhash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], l.height)
	binary.LittleEndian.PutUint64(seed[8:], uint64(len(l.blockhashes)))
	hash := base58.Encode(seed[:])
	last := l.height + BlockhashValidity
	l.blockhashes[hash] = last
	return ledger.Blockhash{Hash: hash, LastValidBlockHeight: last}, nil
}

func (l *Ledger) BlockHeight(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += l.HeightStep
	return l.height, nil
}

// SetHold 与 SetSkipPreflight 在有并发发送时使用，直接写字段只适用于单 goroutine 测试
func (l *Ledger) SetHold(hold bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Hold = hold
}

func (l *Ledger) SetSkipPreflight(skip bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SkipPreflight = skip
}

// AdvanceBlockHeight 手动推进区块高度
func (l *Ledger) AdvanceBlockHeight(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += n
}

func (l *Ledger) SendTransaction(ctx context.Context, tx soltypes.Transaction) (types.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendCount++

	if l.RejectNext != nil {
		err := l.RejectNext
		l.RejectNext = nil
		return types.Signature{}, err
	}

	sig, err := l.verify(tx)
	if err != nil {
		return types.Signature{}, err
	}
	if _, dup := l.txs[sig]; dup {
		return sig, nil
	}
	if l.Hold {
		l.held = append(l.held, tx)
		return sig, nil
	}

	sendErr := l.apply(sig, tx)
	if sendErr != nil && !l.SkipPreflight {
		return types.Signature{}, sendErr
	}
	return sig, nil
}

// Release 执行所有被挂起的交易（模拟交易最终上链）
func (l *Ledger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	held := l.held
	l.held = nil
	for _, tx := range held {
		sig, err := l.verify(tx)
		if err != nil {
			continue
		}
		_ = l.apply(sig, tx)
	}
}

// Drop 丢弃所有被挂起的交易（模拟交易丢失）
func (l *Ledger) Drop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = nil
}

func (l *Ledger) SignatureStatus(ctx context.Context, sig types.Signature) (ledger.SignatureStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.StatusErr != nil {
		return ledger.SignatureStatus{}, l.StatusErr
	}
	rec, ok := l.txs[sig]
	if !ok {
		return ledger.SignatureStatus{}, nil
	}
	return ledger.SignatureStatus{Found: true, Confirmed: rec.confirmed, Slot: rec.tx.Slot, Err: rec.err}, nil
}

func (l *Ledger) Transaction(ctx context.Context, sig types.Signature) (*ledger.ConfirmedTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.txs[sig]
	if !ok {
		return nil, nil
	}
	cp := rec.tx
	cp.Err = rec.err
	return &cp, nil
}

// verify 校验区块哈希与全部必需签名，返回交易签名（第一个签名）
func (l *Ledger) verify(tx soltypes.Transaction) (types.Signature, error) {
	msg := tx.Message
	last, ok := l.blockhashes[msg.RecentBlockHash]
	if !ok {
		return types.Signature{}, &ledger.SendError{Message: "BlockhashNotFound"}
	}
	if l.height > last {
		return types.Signature{}, &ledger.SendError{Message: "BlockhashNotFound"}
	}

	n := int(msg.Header.NumRequireSignatures)
	if n == 0 || len(tx.Signatures) < n || len(msg.Accounts) < n {
		return types.Signature{}, &ledger.SendError{Message: "missing required signatures"}
	}
	data, err := msg.Serialize()
	if err != nil {
		return types.Signature{}, fmt.Errorf("serialize message: %w", err)
	}
	for i := 0; i < n; i++ {
		if !ed25519.Verify(msg.Accounts[i][:], data, tx.Signatures[i]) {
			return types.Signature{}, &ledger.SendError{Message: fmt.Sprintf("signature verification failed for %s", msg.Accounts[i])}
		}
	}
	return types.SignatureFromBytes(tx.Signatures[0])
}

// apply 在账户副本上依次执行全部指令，任一失败则整体丢弃（原子性）
func (l *Ledger) apply(sig types.Signature, tx soltypes.Transaction) *ledger.SendError {
	msg := tx.Message
	signers := make(map[types.Pubkey]bool, msg.Header.NumRequireSignatures)
	for i := 0; i < int(msg.Header.NumRequireSignatures); i++ {
		signers[types.PubkeyFromCommon(msg.Accounts[i])] = true
	}

	staged := make(map[types.Pubkey]*Account, len(l.accounts))
	for k, v := range l.accounts {
		cp := *v
		staged[k] = &cp
	}

	compiled := make([]ledger.CompiledInstruction, 0, len(msg.Instructions))
	var failure *ledger.SendError
	for i, ix := range msg.Instructions {
		ci := ledger.CompiledInstruction{
			ProgramID: types.PubkeyFromCommon(msg.Accounts[ix.ProgramIDIndex]),
			Data:      ix.Data,
		}
		for _, idx := range ix.Accounts {
			ci.Accounts = append(ci.Accounts, types.PubkeyFromCommon(msg.Accounts[idx]))
		}
		compiled = append(compiled, ci)
		if failure == nil {
			failure = l.execute(staged, signers, i, ci)
		}
	}

	l.slot++
	rec := &txRecord{
		tx: ledger.ConfirmedTransaction{
			Signature:    sig,
			Slot:         l.slot,
			BlockTime:    1_760_000_000 + int64(l.slot),
			FeePayer:     types.PubkeyFromCommon(msg.Accounts[0]),
			Instructions: compiled,
		},
		err: failure,
	}
	if failure == nil {
		l.accounts = staged
		rec.confirmed = true
	}
	if failure == nil || l.SkipPreflight {
		l.txs[sig] = rec
	}
	return failure
}

func instructionErr(index int, code uint32, msg string) *ledger.SendError {
	return &ledger.SendError{
		Message: msg,
		InstructionError: &ledger.InstructionError{
			Index:     index,
			Custom:    code,
			HasCustom: true,
			Message:   msg,
		},
	}
}

func (l *Ledger) execute(accounts map[types.Pubkey]*Account, signers map[types.Pubkey]bool, index int, ci ledger.CompiledInstruction) *ledger.SendError {
	decoded, err := instruction.Decode(l.program, ci.ProgramID, ci.Accounts, ci.Data)
	if err != nil {
		if errors.Is(err, instruction.ErrNotProgramInstruction) {
			return &ledger.SendError{
				Message:          "InvalidInstructionData",
				InstructionError: &ledger.InstructionError{Index: index, Message: "InvalidInstructionData"},
			}
		}
		return &ledger.SendError{
			Message:          err.Error(),
			InstructionError: &ledger.InstructionError{Index: index, Message: "InvalidInstructionData"},
		}
	}
	if !signers[decoded.Signer] {
		return &ledger.SendError{
			Message:          "MissingRequiredSignature",
			InstructionError: &ledger.InstructionError{Index: index, Message: "MissingRequiredSignature"},
		}
	}

	switch decoded.Name {
	case instruction.NameSetupManager:
		want, _, _ := l.deriver.Manager(decoded.Signer)
		if want != decoded.Manager {
			return instructionErr(index, ErrCodeConstraintSeeds, "ConstraintSeeds")
		}
		if _, exists := accounts[decoded.Manager]; exists {
			return instructionErr(index, ErrCodeAlreadyInUse,
				fmt.Sprintf("Allocate: account Address { address: %s, base: None } already in use", decoded.Manager))
		}
		accounts[decoded.Manager] = &Account{Kind: AccountManager, Owner: decoded.Signer}

	case instruction.NameCreateEvent:
		if m, ok := accounts[decoded.Manager]; !ok || m.Kind != AccountManager {
			return instructionErr(index, ErrCodeAccountNotInitialized, "AccountNotInitialized: manager")
		}
		if !signers[decoded.Event] {
			return &ledger.SendError{
				Message:          "MissingRequiredSignature",
				InstructionError: &ledger.InstructionError{Index: index, Message: "MissingRequiredSignature"},
			}
		}
		if _, exists := accounts[decoded.Event]; exists {
			return instructionErr(index, ErrCodeAlreadyInUse, "event account already in use")
		}
		accounts[decoded.Event] = &Account{
			Kind:     AccountEvent,
			Owner:    decoded.Artist,
			Capacity: decoded.EventArgs.Capacity,
		}

	case instruction.NameCreateTicket:
		want, _, _ := l.deriver.Manager(decoded.Artist)
		if want != decoded.Manager {
			return instructionErr(index, ErrCodeConstraintSeeds, "ConstraintSeeds")
		}
		if _, ok := accounts[decoded.Manager]; !ok {
			return instructionErr(index, ErrCodeAccountNotInitialized, "AccountNotInitialized: manager")
		}
		if _, ok := accounts[decoded.Platform]; !ok {
			return instructionErr(index, ErrCodeAccountNotInitialized, "AccountNotInitialized: platform")
		}
		treasury, ok := accounts[decoded.Treasury]
		if !ok {
			return instructionErr(index, ErrCodeAccountNotInitialized, "AccountNotInitialized: treasury")
		}
		event, ok := accounts[decoded.Event]
		if !ok || event.Kind != AccountEvent {
			return instructionErr(index, ErrCodeAccountNotInitialized, "AccountNotInitialized: event")
		}
		if !signers[decoded.Ticket] {
			return &ledger.SendError{
				Message:          "MissingRequiredSignature",
				InstructionError: &ledger.InstructionError{Index: index, Message: "MissingRequiredSignature"},
			}
		}
		if _, exists := accounts[decoded.Ticket]; exists {
			return instructionErr(index, ErrCodeAlreadyInUse, "ticket account already in use")
		}
		if event.Capacity > 0 && event.Sold >= event.Capacity {
			return instructionErr(index, ErrCodeSoldOut, "SoldOut")
		}
		event.Sold++
		treasury.Lamports += decoded.TicketArgs.Price
		accounts[decoded.Ticket] = &Account{
			Kind:  AccountTicket,
			Owner: decoded.Signer,
			Event: decoded.Event,
			Price: decoded.TicketArgs.Price,
		}
	}
	return nil
}
