package pda

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

func devnetDeriver() *Deriver {
	return NewDeriver(consts.NFTicketsDevnetProgram)
}

func TestDeriver_KnownVectors(t *testing.T) {
	d := devnetDeriver()

	manager, bump, err := d.Manager(consts.DefaultVenueAuthority)
	require.NoError(t, err)
	assert.Equal(t, "4YXhy9T7zk7NSjVRteddyphnN2jcPGUPxZEjs6oVxdfe", manager.String())
	assert.Equal(t, uint8(254), bump)

	platform, bump, err := d.Platform()
	require.NoError(t, err)
	assert.Equal(t, "FpMuzAB2R2bCCX5aEZKBZu6VfsPKG7PVM9mNqTTABcE3", platform.String())
	assert.Equal(t, uint8(255), bump)

	treasury, bump, err := d.Treasury()
	require.NoError(t, err)
	assert.Equal(t, "7X7sDnRDLRweQ6aQceTVETq6YAG3BS94NG3my8tvDUMz", treasury.String())
	assert.Equal(t, uint8(255), bump)
}

func TestDeriver_Deterministic(t *testing.T) {
	actor := types.PubkeyFromBase58("HLgXScitaoBUU3S9DhqBSHSXuHzgDX3kdSVJ2YzsS6HR")

	a, bumpA, err := devnetDeriver().Manager(actor)
	require.NoError(t, err)
	b, bumpB, err := NewDeriver(consts.NFTicketsDevnetProgram).Manager(actor)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, bumpA, bumpB)

	fromString, _, err := devnetDeriver().ManagerFromString(actor.String())
	require.NoError(t, err)
	assert.Equal(t, a, fromString)
}

func TestDeriver_DependsOnProgram(t *testing.T) {
	actor := consts.DefaultVenueAuthority
	a, _, err := NewDeriver(consts.NFTicketsDevnetProgram).Manager(actor)
	require.NoError(t, err)
	b, _, err := NewDeriver(consts.NFTicketsProgram).Manager(actor)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriver_DistinctActorsDistinctManagers(t *testing.T) {
	d := devnetDeriver()
	var x, y types.Pubkey
	x[0], y[0] = 1, 2
	a, _, err := d.Manager(x)
	require.NoError(t, err)
	b, _, err := d.Manager(y)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriver_InvalidInput(t *testing.T) {
	d := devnetDeriver()

	t.Run("bad base58", func(t *testing.T) {
		_, _, err := d.ManagerFromString("not-a-key-0OIl")
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidAddress, domain.KindOf(err))
	})

	t.Run("wrong length", func(t *testing.T) {
		_, _, err := d.ManagerFromString("3yZe7d")
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidAddress, domain.KindOf(err))
	})

	t.Run("seed too long", func(t *testing.T) {
		_, _, err := d.Derive(TagManager, bytes.Repeat([]byte{1}, consts.MaxSeedLength+1))
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidAddress, domain.KindOf(err))
	})

	t.Run("too many seeds", func(t *testing.T) {
		components := make([][]byte, consts.MaxSeeds)
		for i := range components {
			components[i] = []byte{byte(i)}
		}
		_, _, err := d.Derive(TagManager, components...)
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidAddress, domain.KindOf(err))
	})

	t.Run("empty tag", func(t *testing.T) {
		_, _, err := d.Derive("")
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidAddress, domain.KindOf(err))
	})
}

func TestCheckTags(t *testing.T) {
	require.NoError(t, checkTags(knownTags))
	assert.Error(t, checkTags([]Tag{"man", "manager"}))
}
