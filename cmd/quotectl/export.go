package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quotes/internal/export"
)

func (c *cli) exportCmd() *cobra.Command {
	var (
		file   string
		format string
		output string
		clamp  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a quotation file as txt, pdf or xlsx",
		Example: `  quotectl export -f quotation.yaml --format pdf -o quotation.pdf
  quotectl export -f quotation.json --format xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := export.ForFormat(format)
			if err != nil {
				return err
			}

			f, err := readQuotationFile(file)
			if err != nil {
				return err
			}
			q, err := f.build(c.currency, clamp, c.now())
			if err != nil {
				return err
			}
			if err := q.Validate(); err != nil {
				return fmt.Errorf("invalid quotation: %w", err)
			}

			body, err := renderer.Render(q)
			if err != nil {
				return err
			}

			if output == "" {
				output = export.Filename(q, renderer)
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			c.logger.Info("export written", zap.String("path", output), zap.Int("bytes", len(body)))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quotation file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&format, "format", "pdf", "export format: txt, pdf or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path, "-" for stdout (default <number>.<ext>)`)
	cmd.Flags().BoolVar(&clamp, "clamp", false, "cap discounts so the taxable amount never goes below zero")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
