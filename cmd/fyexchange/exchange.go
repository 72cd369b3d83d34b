package main

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/spf13/cobra"
)

type createOptions struct {
	yearID int64
	format string
	from   string
	to     string
}

func newCreateCmd() *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an exchange on a financial year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x := core.Exchange{FinancialYearID: opts.yearID, Format: opts.format}

			var err error
			if opts.from != "" {
				if x.StartedOn, err = time.Parse(time.DateOnly, opts.from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if x.StoppedOn, err = time.Parse(time.DateOnly, opts.to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.service.CreateExchange(cmd.Context(), x)
			if err != nil {
				return err
			}
			printExchange(cmd.OutOrStdout(), created)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.yearID, "year", 0, "Financial year ID (required)")
	cmd.Flags().StringVar(&opts.format, "format", core.DefaultExchangeFormat, "Exchange format: ekyagri or isacompta")
	cmd.Flags().StringVar(&opts.from, "from", "", "First day of the exchange period (default: start of the year)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Last day of the exchange period, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// newExchangeCmd builds a command that applies one service operation to an
// exchange and prints the result.
func newExchangeCmd(use, short string, apply func(*core.Service, *cobra.Command, int64) (core.Exchange, error)) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			x, err := apply(a.service, cmd, id)
			if err != nil {
				return err
			}
			printExchange(cmd.OutOrStdout(), x)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "exchange", 0, "Exchange ID (required)")
	_ = cmd.MarkFlagRequired("exchange")

	return cmd
}

func newCloseCmd() *cobra.Command {
	return newExchangeCmd("close", "Close an exchange so it accepts no more imports",
		func(svc *core.Service, cmd *cobra.Command, id int64) (core.Exchange, error) {
			return svc.CloseExchange(cmd.Context(), id)
		})
}

func newTokenCmd() *cobra.Command {
	return newExchangeCmd("token", "Issue a new public token for an exchange",
		func(svc *core.Service, cmd *cobra.Command, id int64) (core.Exchange, error) {
			return svc.GeneratePublicToken(cmd.Context(), id)
		})
}

func printExchange(w io.Writer, x core.Exchange) {
	fmt.Fprintf(w, "exchange:  %d\n", x.ID)
	fmt.Fprintf(w, "year:      %d\n", x.FinancialYearID)
	fmt.Fprintf(w, "format:    %s\n", x.Format)
	fmt.Fprintf(w, "period:    %s to %s\n", x.StartedOn.Format(time.DateOnly), x.StoppedOn.Format(time.DateOnly))
	if x.ClosedAt != nil {
		fmt.Fprintf(w, "closed:    %s\n", x.ClosedAt.Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "closed:    no")
	}
	if x.PublicToken != "" && x.PublicTokenExpiredAt != nil {
		fmt.Fprintf(w, "token:     %s (expires %s)\n", x.PublicToken, x.PublicTokenExpiredAt.Format(time.RFC3339))
	}
}
