package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmshell/common"
)

// Log is the global logger instance.
var Log *ShellLog

// ShellLog wraps logrus.Logger for application-specific logging.
type ShellLog struct {
	*logrus.Logger
}

func init() {
	// Console logging is always available; InitGlobalLogger reconfigures for
	// file output when a log directory is supplied.
	if err := InitGlobalLogger("", false, logrus.InfoLevel); err != nil {
		panic(err)
	}
}

// InitGlobalLogger initializes the global Log variable. With a non-empty
// outputPath, entries go to a daily-rotated file under that directory;
// otherwise they go to stdout with colors.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	logger := logrus.New()

	currentLogLevel := defaultLevel
	if verbose {
		currentLogLevel = logrus.DebugLevel
	}
	logger.SetLevel(currentLogLevel)
	logger.SetReportCaller(true)

	defaultFieldsOrder := []string{
		common.LogFieldSession, common.LogFieldEpisode, common.LogFieldCommand,
	}

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, common.FileMode0755); err != nil {
			return fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
		}
		logFilePath := filepath.Join(outputPath, common.AppName+".log")

		writer, err := rotatelogs.New(
			logFilePath+".%Y%m%d", // Daily rotation
			rotatelogs.WithLinkName(logFilePath),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
		}

		fileFormatter := &Formatter{
			TimestampFormat:        "2006-01-02 15:04:05.000 MST",
			NoColors:               true,
			ShowAllLevels:          verbose,
			FieldsDisplayWithOrder: defaultFieldsOrder,
			CustomCallerFormatter: func(frame *runtime.Frame) string {
				return fmt.Sprintf(" [%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
			},
		}
		logger.SetFormatter(fileFormatter)

		logWriters := lfshook.WriterMap{}
		for _, level := range logrus.AllLevels {
			if logger.IsLevelEnabled(level) {
				logWriters[level] = writer
			}
		}
		if len(logWriters) > 0 {
			logger.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
			// The hook owns file output; discard the default stream so entries
			// are not written twice.
			logger.SetOutput(io.Discard)
		}
	} else {
		consoleFormatter := &Formatter{
			TimestampFormat:        "15:04:05",
			ShowAllLevels:          verbose,
			DisableCaller:          true,
			FieldsDisplayWithOrder: defaultFieldsOrder,
		}
		logger.SetFormatter(consoleFormatter)
		logger.SetOutput(os.Stdout)
	}

	Log = &ShellLog{Logger: logger}
	return nil
}
