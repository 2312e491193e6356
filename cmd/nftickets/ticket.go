package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nf-tickets-sol/internal/logic/domain"
	"nf-tickets-sol/internal/logic/instruction"
)

var (
	ticketArgs   domain.TicketArgs
	ticketArtist string
	ticketEvent  string
	ticketScreen string
	ticketRow    string
	ticketSeat   string
)

var mintTicketCmd = &cobra.Command{
	Use:   "mint-ticket",
	Short: "购买并铸造门票（签名钱包为买家），确认后写入数据库",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		if f.Changed("screen") {
			ticketArgs.Screen = domain.Some(ticketScreen)
		}
		if f.Changed("row") {
			ticketArgs.Row = domain.Some(ticketRow)
		}
		if f.Changed("seat") {
			ticketArgs.Seat = domain.Some(ticketSeat)
		}

		buyer, err := loadSigner()
		if err != nil {
			return err
		}
		sc, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := sc.Ticketing.MintTicketOnLedger(cmd.Context(), buyer, ticketArtist, ticketEvent, ticketArgs)
		if res != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signature:  %s\n", res.Signature)
			fmt.Fprintf(out, "ticket:     %s\n", res.TicketAddress)
			fmt.Fprintf(out, "price:      %s SOL (%d lamports)\n", instruction.FormatLamports(res.PriceLamports), res.PriceLamports)
			fmt.Fprintf(out, "state:      %s\n", res.State)
			if res.TicketID != 0 {
				fmt.Fprintf(out, "ticket_id:  %d\n", res.TicketID)
			}
		}
		return err
	},
}

func init() {
	f := mintTicketCmd.Flags()
	f.StringVar(&ticketArtist, "artist", "", "artist wallet address (base58)")
	f.StringVar(&ticketEvent, "event", "", "event account address (base58)")
	f.StringVar(&ticketArgs.Name, "name", "", "ticket name")
	f.StringVar(&ticketArgs.URI, "uri", "", "metadata uri")
	f.StringVar(&ticketArgs.Price, "price", "", "price in SOL, e.g. 0.5")
	f.StringVar(&ticketArgs.VenueAuthority, "venue-authority", "", "venue authority address (base58)")
	f.StringVar(&ticketScreen, "screen", "", "screen")
	f.StringVar(&ticketRow, "row", "", "row")
	f.StringVar(&ticketSeat, "seat", "", "seat")
	_ = mintTicketCmd.MarkFlagRequired("artist")
	_ = mintTicketCmd.MarkFlagRequired("event")
	_ = mintTicketCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(mintTicketCmd)
}
