package main

import (
	"os"

	"calcagent/cmd/calcagent/calc"
	"calcagent/cmd/calcagent/card"
	"calcagent/cmd/calcagent/serve"
	"calcagent/cmd/calcagent/setup"
	"calcagent/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:          "calcagent",
		Short:        "calcagent serves a calculator agent over the A2A protocol",
		SilenceUsage: true,
		// Running without a subcommand serves, like the container entrypoint expects.
		RunE: serve.Cmd.RunE,
	}
	serve.AddConfigFlags(rootCmd)

	rootCmd.AddCommand(setup.Cmd)
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(calc.Cmd)
	rootCmd.AddCommand(card.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
