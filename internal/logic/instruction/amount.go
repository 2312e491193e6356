package instruction

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
)

var maxLamports = decimal.NewFromUint64(math.MaxUint64)

// ToLamports 把人类单位（SOL，十进制字符串）精确换算为 lamports。
// 负数、超过 9 位小数、溢出 u64 均返回 InvalidArgument。
func ToLamports(human string) (uint64, error) {
	const op = "instruction.ToLamports"
	s := strings.TrimSpace(human)
	if s == "" {
		return 0, domain.NewError(domain.KindInvalidArgument, op, fmt.Errorf("empty amount"))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.NewError(domain.KindInvalidArgument, op, fmt.Errorf("parse amount %q: %w", human, err))
	}
	if d.IsNegative() {
		return 0, domain.NewError(domain.KindInvalidArgument, op, fmt.Errorf("negative amount %q", human))
	}
	lamports := d.Shift(consts.SolDecimals)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, domain.NewError(domain.KindInvalidArgument, op,
			fmt.Errorf("amount %q has more than %d decimal places", human, consts.SolDecimals))
	}
	if lamports.GreaterThan(maxLamports) {
		return 0, domain.NewError(domain.KindInvalidArgument, op, fmt.Errorf("amount %q overflows u64 lamports", human))
	}
	return lamports.BigInt().Uint64(), nil
}

// FormatLamports 以 SOL 为单位输出，用于日志与 CLI 展示
func FormatLamports(lamports uint64) string {
	return decimal.NewFromUint64(lamports).Shift(-consts.SolDecimals).String()
}
