package command

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iti/aqmsim"
)

// SummarizeCommand reports the statistics of a trace written by simulate
type SummarizeCommand struct {
	Logger *log.Logger
}

func (cmd SummarizeCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize TRACEFILE",
		Short: "summarize a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filename := args[0]
			tm, err := aqmsim.ReadTrace(filename, aqmsim.UseYAML(filename), nil)
			if err != nil {
				return errors.Wrap(err, "summarize")
			}
			logSummary(cmd.Logger, tm.ExpName, aqmsim.Summarize(tm.Records))
			return nil
		},
	}
}
