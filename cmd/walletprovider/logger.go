package main

import (
	"io"
	"strings"
	"time"

	"github.com/lthibault/log"
	"github.com/sirupsen/logrus"
)

type logOptions struct {
	level  string
	format string
	pretty bool
}

func newLogger(o logOptions, w io.Writer) log.Logger {
	if o.format == "none" {
		w = io.Discard
	}
	return log.New(
		levelOption(o.level),
		log.WithFormatter(formatter(o.format, o.pretty)),
		log.WithWriter(w))
}

func levelOption(lvl string) log.Option {
	switch strings.ToLower(lvl) {
	case "trace", "t":
		return log.WithLevel(log.TraceLevel)
	case "debug", "d":
		return log.WithLevel(log.DebugLevel)
	case "warn", "warning", "w":
		return log.WithLevel(log.WarnLevel)
	case "error", "err", "e":
		return log.WithLevel(log.ErrorLevel)
	case "fatal", "f":
		return log.WithLevel(log.FatalLevel)
	default:
		return log.WithLevel(log.InfoLevel)
	}
}

func formatter(format string, pretty bool) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			PrettyPrint:     pretty,
			TimestampFormat: time.RFC3339Nano,
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}
}
