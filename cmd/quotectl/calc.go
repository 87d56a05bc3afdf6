package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quotes/internal/export"
	"github.com/Simplici0/o.quotes/internal/pricing"
)

type calcItem struct {
	Description string            `json:"description"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
}

type calcResult struct {
	Items  []calcItem     `json:"items"`
	Totals pricing.Totals `json:"totals"`
}

func (c *cli) calcCmd() *cobra.Command {
	var (
		file   string
		clamp  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Print the line breakdown and totals of a quotation file",
		Example: `  quotectl calc -f quotation.yaml
  quotectl calc -f quotation.json --clamp --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readQuotationFile(file)
			if err != nil {
				return err
			}
			q, err := f.build(c.currency, clamp, c.now())
			if err != nil {
				return err
			}
			c.logger.Debug("quotation priced",
				zap.String("file", file),
				zap.Int("items", len(q.Items())),
				zap.Bool("clamp_taxable", q.Policy.ClampTaxable),
			)

			out := cmd.OutOrStdout()
			if !asJSON {
				_, err := fmt.Fprint(out, export.Text(q))
				return err
			}

			res := calcResult{Items: make([]calcItem, 0, len(q.Items())), Totals: q.Totals()}
			for i, it := range q.Items() {
				b, err := q.Breakdown(i)
				if err != nil {
					return err
				}
				res.Items = append(res.Items, calcItem{Description: it.Description, Breakdown: b})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quotation file (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&clamp, "clamp", false, "cap discounts so the taxable amount never goes below zero")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
