package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mnuddindev/cookpulse/internal/recurrence"
	"github.com/spf13/cobra"
)

type occurrencesFlags struct {
	repeat   string
	rule     string
	limit    int
	overflow string
}

// OccurrencesResult is the json output of the occurrences command.
type OccurrencesResult struct {
	Start       string   `json:"start"`
	Mode        string   `json:"mode"`
	Description string   `json:"description,omitempty"`
	Dates       []string `json:"dates"`
}

// NewOccurrencesCommand previews the dates a repeat mode or custom rule expands to.
func NewOccurrencesCommand(rootOpts *RootOptions) *cobra.Command {
	f := &occurrencesFlags{}
	cmd := &cobra.Command{
		Use:   "occurrences <start-date>",
		Short: "Preview the dates of a recurring calendar event",
		Long: `Expand a start date with a repeat mode (daily, weekday, weekly, monthly_day,
monthly_nth, yearly, custom) and print the resulting dates.

A custom rule is passed as JSON, for example:
  cookctl occurrences 2025-01-31 --repeat custom --rule '{"freq":"MONTHLY","count":4}'`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOccurrences(rootOpts, f, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.repeat, "repeat", "none", "repeat mode")
	cmd.Flags().StringVar(&f.rule, "rule", "", "custom rule as JSON")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "cap for custom rules without count")
	cmd.Flags().StringVar(&f.overflow, "overflow", "", "short month behaviour: clamp|roll")
	return cmd
}

func runOccurrences(opts *RootOptions, f *occurrencesFlags, start string, w io.Writer) error {
	mode, err := recurrence.ParseMode(f.repeat)
	if err != nil {
		return err
	}
	var rule *recurrence.Rule
	if strings.TrimSpace(f.rule) != "" {
		rule = &recurrence.Rule{}
		dec := json.NewDecoder(strings.NewReader(f.rule))
		dec.DisallowUnknownFields()
		if err := dec.Decode(rule); err != nil {
			return fmt.Errorf("invalid --rule: %w", err)
		}
	}

	dates, err := recurrence.GenerateStrings(start, mode, rule,
		recurrence.WithLimit(f.limit), recurrence.WithOverflow(recurrence.Overflow(f.overflow)))
	if err != nil {
		return err
	}

	res := OccurrencesResult{Start: start, Mode: string(mode), Dates: dates}
	if rule != nil {
		res.Description = rule.Describe()
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if opts.Verbose && res.Description != "" {
		fmt.Fprintf(w, "# %s\n", res.Description)
	}
	for _, d := range dates {
		fmt.Fprintln(w, d)
	}
	if opts.Verbose {
		fmt.Fprintf(w, "# %d date(s)\n", len(dates))
	}
	return nil
}
