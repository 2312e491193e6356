package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) any {
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestParseTransactionError(t *testing.T) {
	e := ParseTransactionError(decodeRaw(t, `{"InstructionError":[0,{"Custom":0}]}`))
	require.NotNil(t, e)
	require.NotNil(t, e.InstructionError)
	assert.Equal(t, 0, e.FailedInstruction())
	assert.True(t, e.InstructionError.HasCustom)
	assert.True(t, e.AccountAlreadyInUse())

	e = ParseTransactionError(decodeRaw(t, `{"InstructionError":[1,"InvalidAccountData"]}`))
	require.NotNil(t, e)
	assert.Equal(t, 1, e.FailedInstruction())
	assert.False(t, e.AccountAlreadyInUse())
	assert.Equal(t, "InvalidAccountData", e.InstructionError.Message)

	e = ParseTransactionError(decodeRaw(t, `{"InstructionError":[1,{"Custom":6001}]}`))
	require.NotNil(t, e)
	assert.False(t, e.AccountAlreadyInUse())
	assert.Contains(t, e.Error(), "0x1771")

	e = ParseTransactionError("BlockhashNotFound")
	require.NotNil(t, e)
	assert.Equal(t, -1, e.FailedInstruction())

	assert.Nil(t, ParseTransactionError(nil))
}

func TestSendError_AlreadyInUseFromLogs(t *testing.T) {
	e := &SendError{Message: "simulation failed", Logs: []string{"Allocate: account Address { address: x } already in use"}}
	assert.True(t, e.AccountAlreadyInUse())
}
