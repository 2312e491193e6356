package pda

import (
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

// Tag 派生地址的第一个种子，用于区分不同用途的 PDA
type Tag string

const (
	TagManager  Tag = Tag(consts.SeedManager)
	TagPlatform Tag = Tag(consts.SeedPlatform)
	TagTreasury Tag = Tag(consts.SeedTreasury)
)

var knownTags = []Tag{TagManager, TagPlatform, TagTreasury}

func init() {
	// 任何一个标签是另一个标签的前缀时，不同种子序列可能拼出相同字节，直接拒绝启动
	if err := checkTags(knownTags); err != nil {
		panic(err)
	}
}

func checkTags(tags []Tag) error {
	for i, a := range tags {
		for j, b := range tags {
			if i != j && strings.HasPrefix(string(b), string(a)) {
				return fmt.Errorf("pda tag %q is a prefix of %q", a, b)
			}
		}
	}
	return nil
}

// Deriver 纯函数式的 PDA 派生器，不发起任何网络请求
type Deriver struct {
	programID    types.Pubkey
	platformName string
}

func NewDeriver(programID types.Pubkey) *Deriver {
	return &Deriver{programID: programID, platformName: consts.PlatformName}
}

func (d *Deriver) ProgramID() types.Pubkey {
	return d.programID
}

// Derive 以 tag 为首个种子、components 依次追加，求出 off-curve 地址及 bump。
// 种子超过 32 字节或数量超过 16 个时返回 InvalidAddress。
func (d *Deriver) Derive(tag Tag, components ...[]byte) (types.Pubkey, uint8, error) {
	const op = "pda.Derive"
	if tag == "" {
		return types.Pubkey{}, 0, domain.NewError(domain.KindInvalidAddress, op, fmt.Errorf("empty tag"))
	}
	// 第 16 个种子位留给 bump
	if len(components)+1 > consts.MaxSeeds-1 {
		return types.Pubkey{}, 0, domain.NewError(domain.KindInvalidAddress, op,
			fmt.Errorf("too many seeds: %d", len(components)+1))
	}

	seeds := make([][]byte, 0, len(components)+1)
	seeds = append(seeds, []byte(tag))
	seeds = append(seeds, components...)
	for i, seed := range seeds {
		if len(seed) > consts.MaxSeedLength {
			return types.Pubkey{}, 0, domain.NewError(domain.KindInvalidAddress, op,
				fmt.Errorf("seed %d is %d bytes, max %d", i, len(seed), consts.MaxSeedLength))
		}
	}

	addr, bump, err := common.FindProgramAddress(seeds, d.programID.Common())
	if err != nil {
		return types.Pubkey{}, 0, domain.NewError(domain.KindInvalidAddress, op, err)
	}
	return types.PubkeyFromCommon(addr), bump, nil
}

// Manager 派生 ["manager", actor]
func (d *Deriver) Manager(actor types.Pubkey) (types.Pubkey, uint8, error) {
	return d.Derive(TagManager, actor[:])
}

// ManagerFromString 先校验 base58 地址，再派生 manager
func (d *Deriver) ManagerFromString(actor string) (types.Pubkey, uint8, error) {
	pk, err := ParseAddress("pda.ManagerFromString", actor)
	if err != nil {
		return types.Pubkey{}, 0, err
	}
	return d.Manager(pk)
}

// Platform 派生 ["platform", "NF-Tickets"]
func (d *Deriver) Platform() (types.Pubkey, uint8, error) {
	return d.Derive(TagPlatform, []byte(d.platformName))
}

// Treasury 派生 ["treasury", platform]
func (d *Deriver) Treasury() (types.Pubkey, uint8, error) {
	platform, _, err := d.Platform()
	if err != nil {
		return types.Pubkey{}, 0, err
	}
	return d.Derive(TagTreasury, platform[:])
}

// ParseAddress 把外部传入的 base58 地址转为 Pubkey，失败时返回 InvalidAddress
func ParseAddress(op, s string) (types.Pubkey, error) {
	pk, err := types.TryPubkeyFromBase58(s)
	if err != nil {
		e := domain.NewError(domain.KindInvalidAddress, op, err)
		e.Address = s
		return types.Pubkey{}, e
	}
	return pk, nil
}
