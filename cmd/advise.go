package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/server"
)

// -- recommend --

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the top three policies for a profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("model"); err != nil {
			return err
		}
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		env := initAdvisor(cfg)
		if env.DBWarning != "" {
			fmt.Fprintln(os.Stderr, env.DBWarning)
		}

		recs, err := env.Advisor.Recommend(cmd.Context(), profile)
		if err != nil {
			return eris.Wrap(err, "Error getting insurance recommendations")
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No recommendations returned.")
			return nil
		}
		formatRecommendations(os.Stdout, server.RenderRecommendations(recs, env.DB))
		return nil
	},
}

func profileFromFlags(cmd *cobra.Command) (model.UserProfile, error) {
	flags := cmd.Flags()
	age, _ := flags.GetInt("age")
	gender, _ := flags.GetString("gender")
	conditions, _ := flags.GetStringSlice("conditions")
	family, _ := flags.GetInt("family-size")
	budget, _ := flags.GetInt("budget")
	coverage, _ := flags.GetString("coverage")
	features, _ := flags.GetStringSlice("features")

	p := model.UserProfile{
		Age:                   &age,
		Gender:                model.Gender(gender),
		PreExistingConditions: conditions,
		FamilySize:            &family,
		Budget:                &budget,
		CoverageAmount:        coverage,
		PreferredFeatures:     features,
	}
	if err := p.Validate(); err != nil {
		return model.UserProfile{}, eris.Wrap(err, "recommend: invalid profile")
	}
	return p, nil
}

// formatRecommendations writes ranked recommendations with their details.
func formatRecommendations(out io.Writer, recs []server.RenderedRecommendation) {
	for i, r := range recs {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintln(out, r.Title)
		_, _ = fmt.Fprintf(out, "  Why: %s\n", r.SuitabilityReason)
		for _, b := range r.KeyBenefits {
			_, _ = fmt.Fprintf(out, "  + %s\n", b)
		}
		for _, l := range r.Limitations {
			_, _ = fmt.Fprintf(out, "  - %s\n", l)
		}
		_, _ = fmt.Fprintf(out, "  Premium: %s\n", r.PremiumEstimate)
		if r.Details == nil {
			continue
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "  Coverage Range:\t%s\n", r.Details.CoverageRange)
		_, _ = fmt.Fprintf(w, "  Pre-existing Waiting Period:\t%s\n", r.Details.WaitingPeriod)
		_, _ = fmt.Fprintf(w, "  Co-payment:\t%s\n", r.Details.CoPayment)
		_, _ = fmt.Fprintf(w, "  Maternity Coverage:\t%s\n", r.Details.MaternityCoverage)
		_ = w.Flush()
	}
}

// -- compare --

var compareCmd = &cobra.Command{
	Use:   `compare "<Company - Policy>" "<Company - Policy>" [...]`,
	Short: "Compare two or more policies side by side",
	Args:  cobra.MinimumNArgs(server.MinCompareSelection),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("model"); err != nil {
			return err
		}
		env := initAdvisor(cfg)
		_, _ = fmt.Fprintln(os.Stdout, env.Advisor.Compare(cmd.Context(), args))
		return nil
	},
}

// -- ask --

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a health insurance question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("model"); err != nil {
			return err
		}
		env := initAdvisor(cfg)
		_, _ = fmt.Fprintln(os.Stdout, env.Advisor.Answer(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

func init() {
	f := recommendCmd.Flags()
	f.Int("age", 30, "applicant age (1-120)")
	f.String("gender", string(model.GenderMale), "Male, Female, or Other")
	f.StringSlice("conditions", []string{"None"}, "pre-existing conditions")
	f.Int("family-size", 1, "people to cover (1-10)")
	f.Int("budget", 5000, "monthly budget in rupees")
	f.String("coverage", "₹5 Lakhs", "coverage amount tier")
	f.StringSlice("features", []string{"Cashless Hospitalization", "No Claim Bonus"}, "preferred features")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(askCmd)
}
