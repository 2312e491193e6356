package ledger

import (
	"context"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/types"
)

// Blockhash 最新区块哈希及其最后有效区块高度，超过该高度后交易不可能再上链
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SignatureStatus 签名查询结果；Found=false 表示节点尚未看到该交易
type SignatureStatus struct {
	Found     bool
	Confirmed bool // confirmed 或 finalized
	Slot      uint64
	Err       *SendError
}

type CompiledInstruction struct {
	ProgramID types.Pubkey
	Accounts  []types.Pubkey
	Data      []byte
}

// ConfirmedTransaction 已上链交易的精简视图（回放使用）
type ConfirmedTransaction struct {
	Signature    types.Signature
	Slot         uint64
	BlockTime    int64
	FeePayer     types.Pubkey
	Instructions []CompiledInstruction
	Err          *SendError
}

// Ledger 协议层依赖的全部链上能力
type Ledger interface {
	AccountExists(ctx context.Context, addr types.Pubkey) (bool, error)
	LatestBlockhash(ctx context.Context) (Blockhash, error)
	BlockHeight(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx soltypes.Transaction) (types.Signature, error)
	SignatureStatus(ctx context.Context, sig types.Signature) (SignatureStatus, error)
	// Transaction 返回 nil, nil 表示交易不存在
	Transaction(ctx context.Context, sig types.Signature) (*ConfirmedTransaction, error)
}
