package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/types"
)

var resolveActor string

var resolvePendingCmd = &cobra.Command{
	Use:   "resolve-pending",
	Short: "处理确认超时遗留的提交：已上链的补记，过期或被拒的清除",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var actor types.Pubkey
		if resolveActor != "" {
			var err error
			if actor, err = pda.ParseAddress("resolve_pending", resolveActor); err != nil {
				return err
			}
		} else {
			signer, err := loadSigner()
			if err != nil {
				return err
			}
			actor = types.PubkeyFromCommon(signer.PublicKey)
		}

		sc, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		outcomes, err := sc.Ticketing.ResolvePending(cmd.Context(), actor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(outcomes) == 0 {
			fmt.Fprintf(out, "no pending submissions for %s\n", actor)
			return nil
		}
		var firstErr error
		for _, o := range outcomes {
			fmt.Fprintf(out, "%s  %-6s  %s  status=%s  state=%s", o.Signature, o.Kind, o.Address, o.Status, o.State)
			if o.Err != nil {
				fmt.Fprintf(out, "  err=%v", o.Err)
				if firstErr == nil {
					firstErr = o.Err
				}
			}
			fmt.Fprintln(out)
		}
		return firstErr
	},
}

func init() {
	resolvePendingCmd.Flags().StringVar(&resolveActor, "actor", "", "actor address; defaults to the wallet public key")
	rootCmd.AddCommand(resolvePendingCmd)
}
