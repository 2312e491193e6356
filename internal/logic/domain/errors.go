package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 协议层错误的封闭分类，调用方通过 KindOf + switch 分派
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindInvalidAddress 输入地址非法，发生在任何网络调用之前
	KindInvalidAddress
	// KindInvalidArgument 参数非法（金额精度、必填字段等），发生在提交之前
	KindInvalidArgument
	// KindAccountAlreadyExists 链上拒绝重复创建账户（manager 并发创建时为良性）
	KindAccountAlreadyExists
	// KindLedgerSubmissionFailed 链上明确拒绝或交易已过期，可以从头安全重试
	KindLedgerSubmissionFailed
	// KindConfirmationTimeout 结果未知，不能视为失败
	KindConfirmationTimeout
	// KindPersistenceAfterConfirmation 链上已确认但链下写入失败，需要前向对账
	KindPersistenceAfterConfirmation
)

var kindNames = []string{
	"Unknown",
	"InvalidAddress",
	"InvalidArgument",
	"AccountAlreadyExists",
	"LedgerSubmissionFailed",
	"ConfirmationTimeout",
	"PersistenceAfterConfirmation",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

type Error struct {
	Kind      ErrorKind
	Op        string
	Signature string // 已知时携带交易签名（提交之后的错误一定携带）
	Address   string // 相关账户地址
	// Instruction 失败指令在交易中的下标，-1 表示不适用
	Instruction int
	Err         error
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Instruction: -1, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Signature != "" {
		msg += " signature=" + e.Signature
	}
	if e.Address != "" {
		msg += " address=" + e.Address
	}
	if e.Instruction >= 0 {
		msg += fmt.Sprintf(" instruction=%d", e.Instruction)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf 返回错误链上第一个 *Error 的分类，非协议错误返回 KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError 取出错误链上的 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// 链下存储的哨兵错误
var (
	ErrDuplicateLedgerAddress = errors.New("ledger address already recorded")
	ErrEventNotFound          = errors.New("event not found")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrSoldOut                = errors.New("no tickets remaining")
)
