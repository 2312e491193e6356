package wallet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

// LoadKeypair 读取签名钱包。支持两种格式：
//   - solana-keygen 生成的 JSON 数组（64 字节私钥）
//   - base58 编码的私钥字符串（钱包导出格式）
func LoadKeypair(path string) (soltypes.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return soltypes.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return ParseKeypair(data)
}

func ParseKeypair(data []byte) (soltypes.Account, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return soltypes.Account{}, fmt.Errorf("empty keypair")
	}

	var raw []byte
	if data[0] == '[' {
		var ints []int
		if err := json.Unmarshal(data, &ints); err != nil {
			return soltypes.Account{}, fmt.Errorf("parse keypair json: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return soltypes.Account{}, fmt.Errorf("keypair byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(string(data))
		if err != nil {
			return soltypes.Account{}, fmt.Errorf("decode base58 keypair: %w", err)
		}
		raw = decoded
	}

	if len(raw) != 64 {
		return soltypes.Account{}, fmt.Errorf("keypair must be 64 bytes, got %d", len(raw))
	}
	return soltypes.AccountFromBytes(raw)
}
