package logger

import (
	"os"

	"github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// LogrusLogger implements Logger using github.com/sirupsen/logrus.
// keyValues passed to Debug/Info/Warn/Error/Fatal are interpreted as
// alternating key, value pairs and attached as structured fields.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus creates a Logger that writes to stderr only.
func NewLogrus() *LogrusLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusWithFileRotation creates a Logger that writes to stderr and,
// in addition, rotates daily log files at logPath.
func NewLogrusWithFileRotation(logPath string, level logrus.Level) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rotator, err := rotatelogs.New(
		logPath+".%Y%m%d",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(-1),
		rotatelogs.WithRotationCount(7),
	)
	if err == nil {
		l.AddHook(lfshook.NewHook(lfshook.WriterMap{
			logrus.DebugLevel: rotator,
			logrus.InfoLevel:  rotator,
			logrus.WarnLevel:  rotator,
			logrus.ErrorLevel: rotator,
			logrus.FatalLevel: rotator,
		}, &logrus.TextFormatter{FullTimestamp: true}))
	}

	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func toFields(keyValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keyValues[i+1]
	}
	return fields
}

// SetToDebug sets the log level to debug
func (l *LogrusLogger) SetToDebug() { l.entry.Logger.SetLevel(logrus.DebugLevel) }

// SetToInfo sets the log level to info
func (l *LogrusLogger) SetToInfo() { l.entry.Logger.SetLevel(logrus.InfoLevel) }

// SetToError sets the log level to error
func (l *LogrusLogger) SetToError() { l.entry.Logger.SetLevel(logrus.ErrorLevel) }

// Module returns a child logger namespaced under ns
func (l *LogrusLogger) Module(ns string) Logger {
	existing, _ := l.entry.Data["module"].(string)
	if existing != "" {
		ns = existing + "." + ns
	}
	return &LogrusLogger{entry: l.entry.WithField("module", ns)}
}

func (l *LogrusLogger) Debug(msg string, keyValues ...interface{}) {
	l.entry.WithFields(toFields(keyValues)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, keyValues ...interface{}) {
	l.entry.WithFields(toFields(keyValues)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, keyValues ...interface{}) {
	l.entry.WithFields(toFields(keyValues)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, keyValues ...interface{}) {
	l.entry.WithFields(toFields(keyValues)).Error(msg)
}

func (l *LogrusLogger) Fatal(msg string, keyValues ...interface{}) {
	l.entry.WithFields(toFields(keyValues)).Fatal(msg)
}
