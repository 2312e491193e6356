package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const SignatureSize = 64

// Signature 交易签名（64 字节 ed25519），同时作为交易 ID 使用
type Signature [SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, fmt.Errorf("invalid signature length: got %d, want %d", len(b), SignatureSize)
	}
	copy(s[:], b)
	return s, nil
}

func SignatureFromBase58(str string) (Signature, error) {
	data, err := base58.Decode(str)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to decode base58 signature %q: %w", str, err)
	}
	return SignatureFromBytes(data)
}
