package config

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger = logrus.StandardLogger()

// InitLogger replaces Log with a logger built from cfg writing to stdout.
func InitLogger(cfg Logging) {
	Log = NewLogger(cfg, os.Stdout)
}

// NewLogger builds a logger. Format "auto" picks the text formatter when out
// is a terminal and JSON otherwise. Unknown levels fall back to info.
func NewLogger(cfg Logging, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	switch cfg.Format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}
