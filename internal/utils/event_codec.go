package utils

import (
	"encoding/binary"
	"fmt"

	"github.com/near/borsh-go"
)

const payloadPrefixSize = 4

// EncodePayload 将结构体编码为带类型前缀的二进制数据：
// - 前 4 字节为载荷类型（uint32，小端序）
// - 后续为 borsh 序列化数据
//
// v 需传值而不是指针：borsh 会把顶层指针编码为 Option。
func EncodePayload(payloadType uint32, v interface{}) ([]byte, error) {
	body, err := borsh.Serialize(v)
	if err != nil {
		return nil, fmt.Errorf("EncodePayload: serialize %T: %w", v, err)
	}
	buf := make([]byte, payloadPrefixSize, payloadPrefixSize+len(body))
	binary.LittleEndian.PutUint32(buf, payloadType)
	return append(buf, body...), nil
}

// PeekPayloadType 读取载荷类型，不解码 body
func PeekPayloadType(data []byte) (uint32, error) {
	if len(data) < payloadPrefixSize {
		return 0, fmt.Errorf("payload too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint32(data[:payloadPrefixSize]), nil
}

// DecodePayload 校验类型前缀并将 body 反序列化到 v（v 必须为指针）
func DecodePayload(data []byte, wantType uint32, v interface{}) error {
	got, err := PeekPayloadType(data)
	if err != nil {
		return err
	}
	if got != wantType {
		return fmt.Errorf("payload type mismatch: got %d, want %d", got, wantType)
	}
	if err := borsh.Deserialize(v, data[payloadPrefixSize:]); err != nil {
		return fmt.Errorf("DecodePayload: deserialize %T: %w", v, err)
	}
	return nil
}
