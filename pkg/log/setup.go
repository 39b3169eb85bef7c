package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the application logger.
// format is "text" (default) or "json". An unknown level falls back to info
// and is reported through the returned warning.
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, string) {
	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}

	var warning string
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		warning = fmt.Sprintf("Invalid log level '%s', using 'info'. Error: %v", level, err)
	}
	logger.SetLevel(parsed)

	return logger, warning
}
