package instruction

import (
	"crypto/sha256"
)

// 程序指令名（snake_case，与链上程序一致）
const (
	NameSetupManager = "setup_manager"
	NameCreateEvent  = "create_event"
	NameCreateTicket = "create_ticket"
)

const DiscriminatorSize = 8

// Discriminator 计算指令判别码：sha256("global:<name>") 的前 8 字节
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

var (
	discSetupManager = Discriminator(NameSetupManager)
	discCreateEvent  = Discriminator(NameCreateEvent)
	discCreateTicket = Discriminator(NameCreateTicket)
)
