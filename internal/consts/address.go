package consts

import "nf-tickets-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr  = "11111111111111111111111111111111"
	MplCoreProgramStr = "CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d"

	// NF-Tickets Anchor 程序（declare_id 与 devnet/testnet 部署地址）
	NFTicketsProgramStr       = "1Vw6q8hdnGaQpk7StB4qRcbYUiTr52w1vqjfmTMFhac"
	NFTicketsDevnetProgramStr = "CqBh8BryDFbeG8i2gzJDvNS81hiJ96jYtSW3qPk1pt6V"

	// 未指定 venue authority 时使用的默认场馆权限地址
	DefaultVenueAuthorityStr = "HLgXScitaoBUU3S9DhqBSHSXuHzgDX3kdSVJ2YzsS6HR"
)

// PDA 命名空间与平台名
const (
	SeedManager  = "manager"
	SeedPlatform = "platform"
	SeedTreasury = "treasury"

	PlatformName = "NF-Tickets"
)

var (
	SystemProgram  = types.PubkeyFromBase58(SystemProgramStr)
	MplCoreProgram = types.PubkeyFromBase58(MplCoreProgramStr)

	NFTicketsProgram       = types.PubkeyFromBase58(NFTicketsProgramStr)
	NFTicketsDevnetProgram = types.PubkeyFromBase58(NFTicketsDevnetProgramStr)

	DefaultVenueAuthority = types.PubkeyFromBase58(DefaultVenueAuthorityStr)
)
