// SPDX-License-Identifier: MPL-2.0

package config

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger described by c. verbose forces the
// debug level.
func (c LogConfig) NewLogger(w io.Writer, verbose bool) *log.Logger {
	level, err := log.ParseLevel(string(c.Level))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch c.Format {
	case LogFormatJSON:
		formatter = log.JSONFormatter
	case LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: c.Timestamps,
	})
}
