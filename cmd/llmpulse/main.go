package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	runcmder "github.com/llmpulse/llmpulse/cmd/llmpulse/run"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:          "llmpulse",
		Short:        "Measure latency, TTFT and throughput of LLM endpoints",
		SilenceUsage: true,
	}

	root.AddCommand(runcmder.NewRunCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the llmpulse version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "llmpulse "+version)
		},
	}
}
