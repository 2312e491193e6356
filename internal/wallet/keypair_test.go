package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeypair_JSONArray(t *testing.T) {
	acc := soltypes.NewAccount()
	ints := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, got.PublicKey)
}

func TestParseKeypair_Base58(t *testing.T) {
	acc := soltypes.NewAccount()
	got, err := ParseKeypair([]byte(base58.Encode(acc.PrivateKey) + "\n"))
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, got.PublicKey)
}

func TestParseKeypair_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "  ",
		"short":     "[1,2,3]",
		"range":     "[256" + strings.Repeat(",0", 63) + "]",
		"bad json":  "[1,2,",
		"bad chars": "0OIl",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKeypair([]byte(in))
			assert.Error(t, err)
		})
	}

	_, err := LoadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
