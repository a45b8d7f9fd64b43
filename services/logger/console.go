package logsvc

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

// ConsoleLogger writes structured logs through logrus.
type ConsoleLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger logs text in debug mode and JSON otherwise.
func NewConsoleLogger(out io.Writer, debug bool) *ConsoleLogger {
	l := logrus.New()
	l.SetOutput(out)
	if debug {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return &ConsoleLogger{log: l}
}

// Logrus exposes the underlying logger, eg. to plug it into echo.
func (l *ConsoleLogger) Logrus() *logrus.Logger { return l.log }

// expected fmt: error, map[string]interface{}, session.Identity
func fields(args []interface{}) logrus.Fields {
	flds := make(logrus.Fields, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			flds[logrus.ErrorKey] = v.Error()
		case map[string]interface{}:
			for k, val := range v {
				flds[k] = val
			}
		case session.Identity:
			flds["user_id"] = strconv.FormatInt(v.ID, 10)
			flds["username"] = v.Username
		case *session.Identity:
			if v != nil {
				flds["user_id"] = strconv.FormatInt(v.ID, 10)
				flds["username"] = v.Username
			}
		default:
			flds["arg"+strconv.Itoa(i)] = fmt.Sprintf("%+v", v)
		}
	}
	return flds
}

func (l *ConsoleLogger) entry(args []interface{}) *logrus.Entry {
	return l.log.WithFields(fields(args))
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.entry(args).Debug(msg) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.entry(args).Info(msg) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.entry(args).Warn(msg) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.entry(args).Error(msg) }
func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) { l.entry(args).Fatal(msg) }
