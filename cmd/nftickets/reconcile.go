package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	zerosvc "github.com/zeromicro/go-zero/core/service"

	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/metrics"
)

var reconcileOnce bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "运行后台对账任务：消费对账队列并补写数据库",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sc, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		reconcileService, err := sc.NewReconcileService()
		if err != nil {
			return err
		}

		if reconcileOnce {
			report, err := reconcileService.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d recorded=%d retried=%d dropped=%d\n",
				report.Processed, report.Recorded, report.Retried, report.Dropped)
			return nil
		}

		sg := zerosvc.NewServiceGroup()
		sg.Add(reconcileService)
		if addr := sc.Config.MetricsAddr; addr != "" {
			sg.Add(metrics.NewServer(addr, sc.Metrics))
		}

		logger.Infof("[Main] 启动对账服务")
		go sg.Start()

		// 等待退出信号
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.Infof("[Main] 收到退出信号, 停止服务")
		sg.Stop()
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileOnce, "once", false, "process the queue once and exit")
	rootCmd.AddCommand(reconcileCmd)
}
