package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Rowpipe/internal/engine"
	"github.com/shaiso/Rowpipe/internal/table"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var csvPath, secondaryPath, outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a request sequence skeleton from CSV headers",
		Example: `  rowpipe init --csv users.csv --out requests.yaml
  rowpipe init --csv orders.csv --secondary items.csv --out orders.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := root.output(cmd)

			columns, err := table.ReadHeader(csvPath)
			if err != nil {
				return err
			}

			var secondaryColumns []string
			if secondaryPath != "" {
				if secondaryColumns, err = table.ReadHeader(secondaryPath); err != nil {
					return err
				}
			}

			seq := engine.Scaffold(columns, secondaryColumns)
			data, err := engine.MarshalSequence(seq, outPath)
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			out.Success(fmt.Sprintf("Wrote %d-step sequence to %s", len(seq.Requests), outPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Primary CSV file to read headers from")
	cmd.Flags().StringVar(&secondaryPath, "secondary", "", "Secondary CSV file (adds a loop step)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "requests.json", "Output file (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the output file")
	cmd.MarkFlagRequired("csv")

	return cmd
}
