package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/policydb"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Print the policy database, optionally filtered",
	RunE: func(cmd *cobra.Command, _ []string) error {
		companies, _ := cmd.Flags().GetStringSlice("company")
		coverages, _ := cmd.Flags().GetStringSlice("coverage")

		db, warning := policydb.LoadOrEmpty(cfg.Database.Path)
		if warning != "" {
			fmt.Fprintln(os.Stderr, warning)
		}
		insurers := db.Filter(companies, coverages)
		if len(insurers) == 0 {
			fmt.Fprintln(os.Stderr, "No policies found.")
			return nil
		}
		formatInsurers(os.Stdout, insurers)
		return nil
	},
}

// formatInsurers writes insurers and their labelled policy attributes to w.
func formatInsurers(out io.Writer, insurers []model.Insurer) {
	for i, ins := range insurers {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintln(out, ins.Name)
		_, _ = fmt.Fprintf(out, "Claim Settlement Ratio: %s\n", orNotAvailable(ins.ClaimSettlementRatio))
		_, _ = fmt.Fprintf(out, "Cashless Hospitals: %s\n", orNotAvailable(ins.CashlessHospitals))
		for _, p := range ins.Policies {
			_, _ = fmt.Fprintf(out, "  %s\n", p.Name)
			for _, a := range p.Attributes {
				_, _ = fmt.Fprintf(out, "    %s: %s\n", policydb.AttributeLabel(a.Key), a.Value)
			}
		}
	}
}

func orNotAvailable(v string) string {
	if v == "" {
		return "Not available"
	}
	return v
}

func init() {
	policiesCmd.Flags().StringSlice("company", nil, "only these insurers")
	policiesCmd.Flags().StringSlice("coverage", nil, "only policies with these coverage ranges")
	rootCmd.AddCommand(policiesCmd)
}
