package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InstructionError 交易中某一条指令执行失败
type InstructionError struct {
	Index     int
	Custom    uint32
	HasCustom bool
	Message   string
}

func (e *InstructionError) String() string {
	if e.HasCustom {
		return fmt.Sprintf("instruction %d: custom program error 0x%x", e.Index, e.Custom)
	}
	return fmt.Sprintf("instruction %d: %s", e.Index, e.Message)
}

// SendError 链上明确拒绝交易（预检失败、执行失败）
type SendError struct {
	Message          string
	InstructionError *InstructionError
	Logs             []string
}

func (e *SendError) Error() string {
	if e.InstructionError != nil {
		return fmt.Sprintf("transaction rejected: %s: %s", e.InstructionError, e.Message)
	}
	return "transaction rejected: " + e.Message
}

// AccountAlreadyInUse system program 的 Custom(0) 或日志中出现 "already in use"
func (e *SendError) AccountAlreadyInUse() bool {
	if e.InstructionError != nil && e.InstructionError.HasCustom && e.InstructionError.Custom == 0 {
		return true
	}
	if strings.Contains(e.Message, "already in use") {
		return true
	}
	for _, l := range e.Logs {
		if strings.Contains(l, "already in use") {
			return true
		}
	}
	return false
}

// FailedInstruction 失败指令下标，未知时返回 -1
func (e *SendError) FailedInstruction() int {
	if e.InstructionError == nil {
		return -1
	}
	return e.InstructionError.Index
}

// ParseTransactionError 解析 RPC 返回的 TransactionError JSON 结构，例如
//
//	{"InstructionError":[0,{"Custom":0}]}
//	{"InstructionError":[1,"InvalidAccountData"]}
//	"BlockhashNotFound"
func ParseTransactionError(raw any) *SendError {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return &SendError{Message: v}
	case map[string]any:
		if ie, ok := v["InstructionError"].([]any); ok && len(ie) == 2 {
			out := &InstructionError{Index: toInt(ie[0])}
			switch detail := ie[1].(type) {
			case string:
				out.Message = detail
			case map[string]any:
				if custom, ok := detail["Custom"]; ok {
					out.Custom = uint32(toInt(custom))
					out.HasCustom = true
					out.Message = fmt.Sprintf("custom program error 0x%x", out.Custom)
				} else {
					out.Message = compactJSON(detail)
				}
			}
			return &SendError{Message: out.Message, InstructionError: out}
		}
		return &SendError{Message: compactJSON(v)}
	}
	return &SendError{Message: fmt.Sprint(raw)}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return -1
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
