package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/engine"
	"github.com/shaiso/Rowpipe/internal/steps"
)

// stepView — шаг в выводе validate --json.
type stepView struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Method    string   `json:"method"`
	Endpoint  string   `json:"endpoint"`
	Condition string   `json:"condition,omitempty"`
	Loop      bool     `json:"loop"`
	Extract   []string `json:"extract,omitempty"`
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a request sequence file and list its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := root.output(cmd)

			seq, err := engine.LoadSequence(args[0])
			if err != nil {
				return err
			}
			err = engine.ValidateForRun(seq, engine.RunOptions{
				EndpointOverride: endpoint,
				HasSecondary:     true,
			})
			if err != nil {
				return err
			}

			for _, w := range engine.Lint(seq) {
				out.Warn(w.String())
			}

			views := describeSteps(seq)
			if root.jsonOutput {
				out.JSON(views)
				return nil
			}

			rows := make([][]string, len(views))
			for i, v := range views {
				loop := ""
				if v.Loop {
					loop = "yes"
				}
				rows[i] = []string{strconv.Itoa(v.Index), v.Name, v.Method, v.Endpoint, v.Condition, loop}
			}
			out.Table([]string{"#", "NAME", "METHOD", "ENDPOINT", "CONDITION", "LOOP"}, rows)
			out.Success("Sequence is valid.")
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Endpoint override to validate against")

	return cmd
}

func describeSteps(seq *domain.Sequence) []stepView {
	views := make([]stepView, len(seq.Requests))
	for i := range seq.Requests {
		step := &seq.Requests[i]
		method, _ := steps.NormalizeMethod(step.Method)

		v := stepView{
			Index:    i + 1,
			Name:     step.DisplayName(i),
			Method:   method,
			Endpoint: step.EndpointTemplate(),
			Loop:     step.LoopOverSecondary,
		}
		if step.Condition != nil {
			v.Condition = step.Condition.String()
		}
		for _, spec := range step.Extract {
			v.Extract = append(v.Extract, spec.Field)
		}
		views[i] = v
	}
	return views
}
