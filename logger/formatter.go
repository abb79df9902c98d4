package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	resetColorCode         = 0
	defaultFieldSeparator  = " | "
	defaultTimestampFormat = time.RFC3339
)

// Formatter implements logrus.Formatter interface.
type Formatter struct {
	// TimestampFormat specifies the format of the timestamp. Default: time.RFC3339.
	TimestampFormat string
	// NoColors disables colorized output.
	NoColors bool
	// DisableTimestamp disables timestamp output.
	DisableTimestamp bool
	// ShowAllLevels shows the level name on every entry instead of only WARN and above.
	ShowAllLevels bool
	// FieldsDisplayWithOrder specifies field keys to display first, in order.
	// Remaining fields are appended alphabetically.
	FieldsDisplayWithOrder []string
	// FieldSeparator defines the separator between fields. Default: " | ".
	FieldSeparator string
	// DisableCaller disables caller information output.
	DisableCaller bool
	// CustomCallerFormatter allows a custom function to format caller information.
	CustomCallerFormatter func(*runtime.Frame) string
}

// Format formats the log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(timestampFormat))
		b.WriteString(" ")
	}

	if f.ShowAllLevels || entry.Level <= logrus.WarnLevel {
		levelColor := getColorByLevel(entry.Level)
		if !f.NoColors {
			fmt.Fprintf(b, "\x1b[%dm", levelColor)
		}
		levelStr := entry.Level.String()
		if len(levelStr) > 4 {
			levelStr = levelStr[:4]
		}
		fmt.Fprintf(b, "[%s]", strings.ToUpper(levelStr))
		if !f.NoColors {
			fmt.Fprintf(b, "\x1b[%dm", resetColorCode)
		}
		b.WriteString(" ")
	}

	f.writeFields(b, entry)
	b.WriteString(entry.Message)

	if !f.DisableCaller && entry.HasCaller() {
		f.writeCaller(b, entry)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) writeFields(b *bytes.Buffer, entry *logrus.Entry) {
	if len(entry.Data) == 0 {
		return
	}

	separator := f.FieldSeparator
	if separator == "" {
		separator = defaultFieldSeparator
	}

	written := make(map[string]bool, len(entry.Data))
	var parts []string
	for _, key := range f.FieldsDisplayWithOrder {
		if value, ok := entry.Data[key]; ok {
			parts = append(parts, fmt.Sprintf("[%s:%v]", key, value))
			written[key] = true
		}
	}

	var rest []string
	for key := range entry.Data {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		parts = append(parts, fmt.Sprintf("[%s:%v]", key, entry.Data[key]))
	}

	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, separator))
		b.WriteString(" ")
	}
}

func (f *Formatter) writeCaller(b *bytes.Buffer, entry *logrus.Entry) {
	if f.CustomCallerFormatter != nil {
		b.WriteString(f.CustomCallerFormatter(entry.Caller))
		return
	}
	fmt.Fprintf(b, " (%s:%d)", filepath.Base(entry.Caller.File), entry.Caller.Line)
}

func getColorByLevel(level logrus.Level) int {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return 36 // cyan
	case logrus.InfoLevel:
		return 32 // green
	case logrus.WarnLevel:
		return 33 // yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return 31 // red
	default:
		return 39 // default foreground
	}
}
