package calc

import (
	"encoding/json"
	"fmt"
	"strings"

	"calcagent/internal/tools"

	"github.com/spf13/cobra"
)

var precision int

var Cmd = &cobra.Command{
	Use:   "calc <expression>",
	Short: "Evaluate an expression with the agent's calculator tool",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := json.Marshal(map[string]any{
			"expression": strings.Join(args, " "),
			"precision":  precision,
		})
		if err != nil {
			return err
		}

		result, err := tools.NewCalculator().Execute(cmd.Context(), string(input))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&precision, "precision", "p", -1, "decimal places to round to (-1 keeps full precision)")
}
