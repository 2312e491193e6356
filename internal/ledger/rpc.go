package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/types"
)

// RPCLedger 基于 solana-go-sdk JSON-RPC 客户端的 Ledger 实现
type RPCLedger struct {
	client *client.Client
}

func NewRPCLedger(endpoint string) *RPCLedger {
	return &RPCLedger{client: client.NewClient(endpoint)}
}

func (l *RPCLedger) AccountExists(ctx context.Context, addr types.Pubkey) (bool, error) {
	info, err := l.client.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return false, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	// 账户不存在时 RPC 返回 null，SDK 转换为零值
	return info.Lamports > 0 || info.Owner != (common.PublicKey{}), nil
}

func (l *RPCLedger) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	res, err := l.client.GetLatestBlockhash(ctx)
	if err != nil {
		return Blockhash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return Blockhash{Hash: res.Blockhash, LastValidBlockHeight: res.LatestValidBlockHeight}, nil
}

func (l *RPCLedger) BlockHeight(ctx context.Context) (uint64, error) {
	res, err := l.client.RpcClient.GetBlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("getBlockHeight: %w", err)
	}
	if res.Error != nil {
		return 0, fmt.Errorf("getBlockHeight: %w", res.Error)
	}
	return res.Result, nil
}

// SendTransaction 预检失败时返回 *SendError，其它传输错误原样返回（结果未知）
func (l *RPCLedger) SendTransaction(ctx context.Context, tx soltypes.Transaction) (types.Signature, error) {
	sigStr, err := l.client.SendTransaction(ctx, tx)
	if err != nil {
		if sendErr := sendErrorFromRPC(err); sendErr != nil {
			return types.Signature{}, sendErr
		}
		return types.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	return types.SignatureFromBase58(sigStr)
}

func (l *RPCLedger) SignatureStatus(ctx context.Context, sig types.Signature) (SignatureStatus, error) {
	st, err := l.client.GetSignatureStatus(ctx, sig.String())
	if err != nil {
		return SignatureStatus{}, fmt.Errorf("getSignatureStatus %s: %w", sig, err)
	}
	if st == nil {
		return SignatureStatus{}, nil
	}
	out := SignatureStatus{Found: true, Slot: st.Slot, Err: ParseTransactionError(st.Err)}
	if st.ConfirmationStatus != nil {
		switch *st.ConfirmationStatus {
		case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
			out.Confirmed = true
		}
	}
	return out, nil
}

func (l *RPCLedger) Transaction(ctx context.Context, sig types.Signature) (*ConfirmedTransaction, error) {
	tx, err := l.client.GetTransaction(ctx, sig.String())
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", sig, err)
	}
	if tx == nil {
		return nil, nil
	}

	msg := tx.Transaction.Message
	out := &ConfirmedTransaction{
		Signature:    sig,
		Slot:         tx.Slot,
		Instructions: make([]CompiledInstruction, 0, len(msg.Instructions)),
	}
	if tx.BlockTime != nil {
		out.BlockTime = *tx.BlockTime
	}
	if tx.Meta != nil {
		out.Err = ParseTransactionError(tx.Meta.Err)
	}
	if len(msg.Accounts) > 0 {
		out.FeePayer = types.PubkeyFromCommon(msg.Accounts[0])
	}
	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex >= len(msg.Accounts) {
			// v0 交易的查找表账户不在静态列表中，本程序只提交 legacy 交易
			continue
		}
		ci := CompiledInstruction{
			ProgramID: types.PubkeyFromCommon(msg.Accounts[ix.ProgramIDIndex]),
			Accounts:  make([]types.Pubkey, 0, len(ix.Accounts)),
			Data:      ix.Data,
		}
		for _, idx := range ix.Accounts {
			if idx < len(msg.Accounts) {
				ci.Accounts = append(ci.Accounts, types.PubkeyFromCommon(msg.Accounts[idx]))
			}
		}
		out.Instructions = append(out.Instructions, ci)
	}
	return out, nil
}

// sendErrorFromRPC 把 JSON-RPC 预检错误（data.err / data.logs）转换为 SendError
func sendErrorFromRPC(err error) *SendError {
	var rpcErr *rpc.JsonRpcError
	if !errors.As(err, &rpcErr) {
		// 部分 RPC 代理会把错误压平为字符串
		if msg := err.Error(); strings.Contains(msg, "Transaction simulation failed") || strings.Contains(msg, "already in use") {
			return &SendError{Message: msg}
		}
		return nil
	}
	data, ok := rpcErr.Data.(map[string]any)
	if !ok {
		return nil
	}
	out := ParseTransactionError(data["err"])
	if out == nil {
		return nil
	}
	if logs, ok := data["logs"].([]any); ok {
		for _, l := range logs {
			if s, ok := l.(string); ok {
				out.Logs = append(out.Logs, s)
			}
		}
	}
	if out.InstructionError == nil {
		out.Message = rpcErr.Message + ": " + out.Message
	}
	return out
}
