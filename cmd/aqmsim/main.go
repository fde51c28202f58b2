package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iti/aqmsim"
	"github.com/iti/aqmsim/cmd/aqmsim/command"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	const description = "Admission control and congestion simulator"
	root := &cobra.Command{Use: "aqmsim", Short: description}

	var logLevel string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return aqmsim.SetLogLevel(logLevel)
	}

	root.AddCommand(
		command.SimulateCommand{Logger: aqmsim.Log}.Command(ctx),
		command.SummarizeCommand{Logger: aqmsim.Log}.Command(),
	)

	if err := root.Execute(); err != nil {
		aqmsim.MainLog.Fatalf("failed to execute root command: \n%v", err)
	}
}
