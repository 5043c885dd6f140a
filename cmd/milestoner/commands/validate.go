package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/policy"
	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// problem is one issue found by validate.
type problem struct {
	Timeline  string          `json:"timeline"`
	Milestone int             `json:"milestone,omitempty"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Severity  policy.Severity `json:"severity"`
	Policy    string          `json:"policy,omitempty"`
}

// policyCode is the code of problems reported by lint policies.
const policyCode = "POLICY"

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var noPolicies bool

	cmd := &cobra.Command{
		Use:   "validate <input>",
		Short: "Check timelines and styles without rendering",
		Long: `Validate the timelines in an input file against the configured styles.

This command checks:
  - Timeline parameters (date range, canvas bounds, track count)
  - Milestones dated before the start of their timeline
  - Style categories missing for the levels in use
  - Lint policies: the built-in Rego rules plus any given with --policy

Every timeline is laid out in memory, so anything validate accepts will
also generate. Only errors fail validation; policy warnings are reported
but do not.`,
		Example: `  # Validate a workbook with the built-in styles
  milestoner validate plan.xlsx

  # Validate against a styles file
  milestoner validate timelines.yaml --styles styles.yaml

  # Add project lint rules
  milestoner validate plan.xlsx --policy policies/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			timelines, err := e.loadTimelines(args[0], nil)
			if err != nil {
				return err
			}
			styles, err := e.loadStyles(timelines)
			if err != nil {
				return err
			}
			layoutOpts, err := e.settings.LayoutOptions()
			if err != nil {
				return err
			}
			var policies *policy.Engine
			if !noPolicies {
				if policies, err = e.loadPolicies(cmd.Context()); err != nil {
					return err
				}
			}

			var problems []problem
			for _, tl := range timelines {
				catalog, err := styles.Catalog(tl.Name())
				if err != nil {
					return err
				}
				problems = append(problems, validateTimeline(cmd.Context(), tl, catalog, layoutOpts)...)
				if policies != nil {
					found, err := lintTimeline(cmd.Context(), policies, tl, catalog, layoutOpts)
					if err != nil {
						return err
					}
					problems = append(problems, found...)
				}
			}
			blocking := 0
			for _, p := range problems {
				if p.Severity.Blocks() {
					blocking++
				}
			}

			if opts.jsonOutput {
				if problems == nil {
					problems = []problem{}
				}
				if err := e.printJSON(problems); err != nil {
					return err
				}
			} else {
				if len(problems) > 0 {
					w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "TIMELINE\tMILESTONE\tSEVERITY\tCODE\tMESSAGE")
					for _, p := range problems {
						ms := "-"
						if p.Milestone != 0 {
							ms = fmt.Sprint(p.Milestone)
						}
						code := p.Code
						if p.Policy != "" {
							code = p.Policy
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Timeline, ms, p.Severity, code, p.Message)
					}
					if err := w.Flush(); err != nil {
						return err
					}
				}
				if blocking == 0 {
					fmt.Fprintf(e.out, "✓ %d timelines valid", len(timelines))
					if n := len(problems); n > 0 {
						fmt.Fprintf(e.out, " (%d warnings)", n)
					}
					fmt.Fprintln(e.out)
				}
			}

			if blocking > 0 {
				return fmt.Errorf("found %d problems", blocking)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPolicies, "no-policies", false, "skip lint policies")
	addPolicyFlag(cmd)
	addLayoutFlags(cmd)

	return cmd
}

// validateTimeline lays each milestone out on its own so that every bad
// milestone is reported, not only the first.
func validateTimeline(ctx context.Context, tl *timeline.Timeline, catalog *style.Catalog, opts []engine.Option) []problem {
	var problems []problem

	for _, c := range catalog.Missing(style.StandardCategories(maxLevelOf(tl))) {
		problems = append(problems, problem{
			Timeline: tl.Name(),
			Code:     engine.ErrCodeMissingCategory,
			Message:  fmt.Sprintf("style category %q is not defined", c),
		})
	}

	opts = append(opts, engine.WithName(tl.Name()), engine.WithSkipInvalid(false))
	eng, err := engine.NewLayoutEngine(tl.Config(), catalog, opts...)
	if err != nil {
		return append(problems, problemFrom(tl.Name(), err))
	}

	for _, m := range tl.Milestones() {
		if _, err := eng.Layout(ctx, []timeline.Milestone{m}); err != nil {
			if errors.Is(err, context.Canceled) {
				return problems
			}
			p := problemFrom(tl.Name(), err)
			if p.Code == engine.ErrCodeMissingCategory {
				continue // already reported per category
			}
			problems = append(problems, p)
		}
	}
	return problems
}

// lintTimeline evaluates the policies against tl and, when it lays out with
// invalid milestones skipped, its plan.
func lintTimeline(ctx context.Context, policies *policy.Engine, tl *timeline.Timeline, catalog *style.Catalog, opts []engine.Option) ([]problem, error) {
	var plan *engine.DrawPlan
	opts = append(opts, engine.WithName(tl.Name()), engine.WithSkipInvalid(true))
	if eng, err := engine.NewLayoutEngine(tl.Config(), catalog, opts...); err == nil {
		plan, _ = eng.LayoutTimeline(ctx, tl)
	}

	result, err := policies.Evaluate(ctx, tl, plan, "validate")
	if err != nil {
		return nil, err
	}

	var problems []problem
	for _, v := range result.Violations {
		problems = append(problems, problem{
			Timeline:  v.Timeline,
			Milestone: v.Milestone,
			Code:      policyCode,
			Message:   v.Message,
			Severity:  v.Severity,
			Policy:    v.Policy,
		})
	}
	for _, w := range result.Warnings {
		problems = append(problems, problem{
			Timeline: tl.Name(),
			Code:     policyCode,
			Message:  w,
			Severity: policy.SeverityWarning,
		})
	}
	return problems, nil
}

func maxLevelOf(tl *timeline.Timeline) int {
	return maxLevel([]*timeline.Timeline{tl})
}

func problemFrom(name string, err error) problem {
	p := problem{Timeline: name, Message: err.Error(), Severity: policy.SeverityError}
	var le *engine.LayoutError
	if errors.As(err, &le) {
		p.Code = le.Code
		p.Message = le.Message
		if le.Milestone != nil {
			p.Milestone = *le.Milestone
		}
	}
	if p.Code == "" {
		p.Code = "INVALID"
	}
	return p
}
