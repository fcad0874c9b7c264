package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologConsoleWriter is the human readable writer used outside production.
// It writes to stderr so stdout stays free for command output.
func ZerologConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
}

// MaskSecret keeps the first and last four characters of s and stars the
// rest. Secrets of eight characters or fewer are fully starred.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
