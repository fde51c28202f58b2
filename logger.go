package aqmsim

import (
	"github.com/sirupsen/logrus"
)

// FieldCategory keys the per-component entries
const FieldCategory string = "category"

var (
	Log         *logrus.Logger
	MainLog     *logrus.Entry
	CfgLog      *logrus.Entry
	ProducerLog *logrus.Entry
	ManagerLog  *logrus.Entry
	ConsumerLog *logrus.Entry
	TraceLog    *logrus.Entry
)

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	MainLog = Log.WithField(FieldCategory, "Main")
	CfgLog = Log.WithField(FieldCategory, "CFG")
	ProducerLog = Log.WithField(FieldCategory, "Producer")
	ManagerLog = Log.WithField(FieldCategory, "Policy")
	ConsumerLog = Log.WithField(FieldCategory, "Consumer")
	TraceLog = Log.WithField(FieldCategory, "Trace")
}

// SetLogLevel parses level (e.g. "info", "debug") and applies it to Log
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Log.SetLevel(lvl)
	return nil
}
