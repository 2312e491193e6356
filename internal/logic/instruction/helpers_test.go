package instruction

import (
	soltypes "github.com/blocto/solana-go-sdk/types"

	"nf-tickets-sol/internal/types"
)

func metaKeys(metas []soltypes.AccountMeta) []types.Pubkey {
	out := make([]types.Pubkey, len(metas))
	for i, m := range metas {
		out[i] = types.PubkeyFromCommon(m.PubKey)
	}
	return out
}
