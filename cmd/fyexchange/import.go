package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/i18n"
	"github.com/spf13/cobra"
)

type importOptions struct {
	exchangeID int64
	file       string
	locale     string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an exchange file into its financial year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.exchangeID, "exchange", 0, "Exchange ID (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path of the CSV file to import (required)")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "Locale of failure messages (default LOCALE_DEFAULT)")
	_ = cmd.MarkFlagRequired("exchange")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func contentTypeOf(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "text/csv"
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.file, err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := core.ContextWithOrigin(cmd.Context(), core.Origin{Source: "cli"})
	res, err := a.service.ImportExchange(ctx, core.ImportRequest{
		ExchangeID: opts.exchangeID,
		File: core.ImportFile{
			FileName:    filepath.Base(opts.file),
			ContentType: contentTypeOf(opts.file),
			Data:        data,
		},
		Locale: opts.locale,
	})
	if err != nil {
		var invalid *core.InvalidFile
		if errors.As(err, &invalid) {
			return fmt.Errorf("%s (%s, run %s)", invalid.Message, invalid.Code(), res.RunID)
		}
		if core.IsUserFacing(err) {
			return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d entries (%d items) into exchange %d\n", res.Entries, res.Items, opts.exchangeID)
	if res.SkippedGroups > 0 {
		fmt.Fprintf(out, "skipped %d entries whose journal belongs to another accountant\n", res.SkippedGroups)
	}
	fmt.Fprintf(out, "run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
	return nil
}

type checkOptions struct {
	format    string
	delimiter string
	locale    string
	from      string
	to        string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check the structure of an exchange file without a database",
		Long: `Check parses FILE and validates its headers against the chosen format.
When --from and --to are given, every row date must also fall inside that
period. Journal codes are listed but not resolved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", core.DefaultExchangeFormat, "Exchange format: ekyagri or isacompta")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().StringVar(&opts.locale, "locale", i18n.DefaultLocale, "Locale of failure messages")
	cmd.Flags().StringVar(&opts.from, "from", "", "First day of the financial year (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Last day of the financial year (YYYY-MM-DD)")

	return cmd
}

func runCheck(cmd *cobra.Command, path string, opts checkOptions) error {
	comma, size := utf8.DecodeRuneInString(opts.delimiter)
	if size == 0 || size != len(opts.delimiter) {
		return fmt.Errorf("--delimiter must be a single character, got %q", opts.delimiter)
	}

	catalog, err := i18n.Load(config.Defaults().Locale.Default)
	if err != nil {
		return err
	}
	tr := catalog.For(opts.locale)
	format := core.FormatFor(opts.format)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := core.Parser{Comma: comma}.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", tr.Translate(core.MsgFileInvalid.CatalogKey(), nil), err)
	}
	if err := core.CheckHeaders(tr, format, table); err != nil {
		return describe(err)
	}

	if opts.from != "" || opts.to != "" {
		year, err := periodFromFlags(opts.from, opts.to)
		if err != nil {
			return err
		}
		if err := core.CheckDates(tr, format, year, table.Rows); err != nil {
			return describe(err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "format:   %s\n", format)
	fmt.Fprintf(out, "rows:     %d\n", len(table.Rows))
	fmt.Fprintf(out, "entries:  %d\n", len(core.GroupByEntryNumber(table.Rows)))
	fmt.Fprintf(out, "journals: %v\n", core.DistinctJournalCodes(table.Rows))
	return nil
}

// describe appends the code and diagnostic cause of an InvalidFile to its message.
func describe(err error) error {
	var invalid *core.InvalidFile
	if !errors.As(err, &invalid) {
		return err
	}
	if invalid.Internal == nil {
		return fmt.Errorf("%s (%s)", invalid.Message, invalid.Code())
	}
	return fmt.Errorf("%s (%s): %v", invalid.Message, invalid.Code(), invalid.Internal)
}

func periodFromFlags(from, to string) (core.FinancialYear, error) {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return core.FinancialYear{}, fmt.Errorf("--from: %w", err)
	}
	stop, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return core.FinancialYear{}, fmt.Errorf("--to: %w", err)
	}
	if stop.Before(start) {
		return core.FinancialYear{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return core.FinancialYear{StartedOn: start, StoppedOn: stop}, nil
}
