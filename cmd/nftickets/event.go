package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nf-tickets-sol/internal/logic/domain"
)

var eventArgs domain.EventArgs

var createEventCmd = &cobra.Command{
	Use:   "create-event",
	Short: "在链上创建活动（必要时同时创建 manager），确认后写入数据库",
	RunE: func(cmd *cobra.Command, _ []string) error {
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		sc, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := sc.Ticketing.CreateEventOnLedger(cmd.Context(), signer, eventArgs)
		if res != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signature:        %s\n", res.Signature)
			fmt.Fprintf(out, "event:            %s\n", res.EventAddress)
			fmt.Fprintf(out, "manager:          %s\n", res.ManagerAddress)
			fmt.Fprintf(out, "manager_created:  %v\n", res.ManagerWasJustCreated)
			fmt.Fprintf(out, "state:            %s\n", res.State)
			if res.EventID != 0 {
				fmt.Fprintf(out, "event_id:         %d\n", res.EventID)
			}
		}
		return err
	},
}

func init() {
	f := createEventCmd.Flags()
	f.StringVar(&eventArgs.Name, "name", "", "event name")
	f.StringVar(&eventArgs.Category, "category", "", "event category")
	f.StringVar(&eventArgs.URI, "uri", "", "metadata uri")
	f.StringVar(&eventArgs.City, "city", "", "city")
	f.StringVar(&eventArgs.Venue, "venue", "", "venue")
	f.StringVar(&eventArgs.Artist, "artist-name", "", "performing artist display name")
	f.StringVar(&eventArgs.Date, "date", "", "event date")
	f.StringVar(&eventArgs.Time, "time", "", "event time")
	f.Uint32Var(&eventArgs.Capacity, "capacity", 0, "ticket capacity")
	f.BoolVar(&eventArgs.IsTicketTransferable, "transferable", false, "tickets can be transferred")
	rootCmd.AddCommand(createEventCmd)
}
