package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/types"
)

var replayRecord bool

var replayCmd = &cobra.Command{
	Use:   "replay <signature>",
	Short: "回放已上链交易，检查并（可选）补写缺失的数据库记录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := types.SignatureFromBase58(args[0])
		if err != nil {
			return domain.NewError(domain.KindInvalidArgument, "replay", err)
		}

		sc, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := sc.Ticketing.Replay(cmd.Context(), sig, replayRecord)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "signature: %s  slot: %d  failed: %v\n", report.Signature, report.Slot, report.Failed)
		var firstErr error
		for _, item := range report.Items {
			fmt.Fprintf(out, "  %-6s  %s  recorded=%v  recorded_now=%v", item.Kind, item.Address, item.AlreadyRecorded, item.RecordedNow)
			if item.Err != nil {
				fmt.Fprintf(out, "  err=%v", item.Err)
				if firstErr == nil {
					firstErr = item.Err
				}
			}
			fmt.Fprintln(out)
		}
		return firstErr
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayRecord, "record", false, "write missing rows")
	rootCmd.AddCommand(replayCmd)
}
