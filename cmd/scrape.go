package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/export"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a market data scraper once and print the result",
}

// -- scrape irdai|claims|premiums --

func tableScrapeCmd(source, short string) *cobra.Command {
	return &cobra.Command{
		Use:   source,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate("scrape"); err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			scrapers := initScrapers(cfg.Scrape)

			var sheet export.Sheet
			var items any
			var status model.ResultStatus
			switch source {
			case scrape.SourceIRDAI:
				res := scrapers.IRDAI.Scrape(cmd.Context())
				sheet, items, status = export.IRDAISheet(res.Items), orEmpty(res.Items), res.Status
			case scrape.SourceClaims:
				res := scrapers.Claims.Scrape(cmd.Context())
				sheet, items, status = export.ClaimsSheet(res.Items), orEmpty(res.Items), res.Status
			case scrape.SourcePremiums:
				res := scrapers.Premiums.Scrape(cmd.Context())
				sheet, items, status = export.PremiumsSheet(res.Items), orEmpty(res.Items), res.Status
			}

			if status == model.StatusFailed {
				return eris.Errorf("scrape %s failed, see logs", source)
			}
			if asJSON {
				return writeItemsJSON(os.Stdout, items)
			}
			if len(sheet.Rows) == 0 {
				fmt.Fprintln(os.Stderr, "No rows found.")
				return nil
			}
			formatSheet(os.Stdout, sheet)
			return nil
		},
	}
}

// orEmpty keeps an empty result encoding as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeItemsJSON(out io.Writer, items any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(items), "scrape: encode json")
}

// -- scrape terms --

var scrapeTermsCmd = &cobra.Command{
	Use:   "terms <company>",
	Short: "Fetch terms and conditions text for a company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		scrapers := initScrapers(cfg.Scrape)
		_, _ = fmt.Fprintln(os.Stdout, scrapers.Terms.Fetch(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

// -- export --

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Scrape IRDAI, claims, and premiums and write them to a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		csvDir, _ := cmd.Flags().GetString("csv-dir")

		refresher := initScrapers(cfg.Scrape).Refresher(false)
		if err := refresher.RefreshAll(cmd.Context(), market.Sources()...); err != nil {
			// Failed tables are exported empty.
			zap.L().Warn("export: some sources failed", zap.Error(err))
		}

		sheets := export.MarketSheets(refresher.Tables())
		if err := export.SaveXLSX(out, sheets); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)

		if csvDir != "" {
			if err := writeCSVDir(csvDir, sheets); err != nil {
				return err
			}
		}
		return nil
	},
}

func writeCSVDir(dir string, sheets []export.Sheet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	for _, s := range sheets {
		path := filepath.Join(dir, csvFileName(s.Name))
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		werr := export.WriteCSV(f, s)
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return eris.Wrapf(cerr, "export: close %s", path)
		}
	}
	return nil
}

// csvFileName turns "Claim Settlement" into "claim_settlement.csv".
func csvFileName(sheet string) string {
	return strings.ReplaceAll(strings.ToLower(sheet), " ", "_") + ".csv"
}

// formatSheet writes a sheet as an aligned table.
func formatSheet(out io.Writer, s export.Sheet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.ToUpper(strings.Join(s.Header, "\t")))
	for _, r := range s.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	_ = w.Flush()
}

func init() {
	for _, c := range []*cobra.Command{
		tableScrapeCmd(scrape.SourceIRDAI, "Scrape the IRDAI health insurance product listing"),
		tableScrapeCmd(scrape.SourceClaims, "Scrape claim settlement ratios"),
		tableScrapeCmd(scrape.SourcePremiums, "Scrape plan premiums from insurer websites"),
	} {
		c.Flags().Bool("json", false, "print items as JSON")
		scrapeCmd.AddCommand(c)
	}
	scrapeCmd.AddCommand(scrapeTermsCmd)

	exportCmd.Flags().String("out", "market.xlsx", "output workbook path")
	exportCmd.Flags().String("csv-dir", "", "also write one CSV per sheet into this directory")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(exportCmd)
}
