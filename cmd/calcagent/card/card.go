package card

import (
	"encoding/json"

	"calcagent/cmd/calcagent/serve"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "card",
	Short: "Print the agent card served at /.well-known/agent-card.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := serve.LoadConfig()
		if err != nil {
			return err
		}

		// The card only needs the agent's metadata, never a model.
		srv := serve.NewA2AServer(cfg, serve.NewAgent(cfg, nil), nil)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(srv.Card())
	},
}

func init() {
	serve.AddConfigFlags(Cmd)
}
