package consts

// 二进制载荷类型前缀（4 字节小端），用于 Redis / Kafka 中的记录
const (
	PayloadPendingAttempt  uint32 = 1
	PayloadReconcileSignal uint32 = 2
)
