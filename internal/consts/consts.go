package consts

const (
	// LamportsPerSol SOL 与 lamport（链上最小单位）的固定换算系数
	LamportsPerSol = 1_000_000_000
	SolDecimals    = 9
)

// 链上账户与 seed 约束（与 Solana runtime 保持一致）
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)
