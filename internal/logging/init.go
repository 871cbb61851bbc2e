package logging

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func Init() {
	prettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf(" %s:%d", filepath.Base(f.File), f.Line)
	}

	if viper.GetString("log_format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  "2006-01-02T15:04:05.000Z07:00",
			CallerPrettyfier: prettyfier,
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:      true,
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02 15:04:05",
			CallerPrettyfier: prettyfier,
		})
	}
	logrus.SetReportCaller(true)

	level, err := Level()
	if err != nil {
		logrus.Fatalf("parsing log level: %v", err)
	}
	logrus.SetLevel(level)
}

// Level picks the log level: debug/verbose flags win over log_level, info is the default.
func Level() (logrus.Level, error) {
	switch {
	case viper.GetBool("debug") || viper.GetBool("verbose"):
		return logrus.DebugLevel, nil
	case viper.GetString("log_level") != "":
		return logrus.ParseLevel(viper.GetString("log_level"))
	default:
		return logrus.InfoLevel, nil
	}
}
