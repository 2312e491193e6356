package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"

	"nf-tickets-sol/internal/config"
	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/svc"
	"nf-tickets-sol/internal/wallet"
)

// 进程退出码，按错误类别区分，便于脚本判断是否可以重试
const (
	exitOK          = 0
	exitInternal    = 1
	exitInvalid     = 2
	exitLedgerFail  = 3
	exitUnknown     = 4
	exitPersistence = 5
)

var (
	configFile string
	walletFile string
)

var rootCmd = &cobra.Command{
	Use:           "nftickets",
	Short:         "NF-Tickets 链上活动与门票管理工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "etc/nftickets.yaml", "the config file")
	rootCmd.PersistentFlags().StringVar(&walletFile, "wallet", os.ExpandEnv("$HOME/.config/solana/id.json"), "signer keypair file")
}

func execute() int {
	// 中断信号取消 context：正在等待确认的提交按结果未知处理
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidAddress, domain.KindInvalidArgument:
		return exitInvalid
	case domain.KindLedgerSubmissionFailed, domain.KindAccountAlreadyExists:
		return exitLedgerFail
	case domain.KindConfirmationTimeout:
		return exitUnknown
	case domain.KindPersistenceAfterConfirmation:
		return exitPersistence
	default:
		return exitInternal
	}
}

// bootstrap 加载配置、初始化日志与服务上下文；返回的 cleanup 必须被调用
func bootstrap(ctx context.Context) (*svc.ServiceContext, func(), error) {
	c, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	sc, err := svc.NewServiceContext(ctx, c)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return sc, func() {
		sc.Close()
		logger.Sync()
	}, nil
}

func loadSigner() (soltypes.Account, error) {
	if walletFile == "" {
		return soltypes.Account{}, errors.New("--wallet is required")
	}
	return wallet.LoadKeypair(walletFile)
}
