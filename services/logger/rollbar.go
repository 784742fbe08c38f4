package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/user"
)

// RollbarLogger reports to Rollbar and writes every entry to zap.
type RollbarLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zl: zl}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Named returns a logger whose zap entries are tagged with name (eg: "api", "db").
func (l RollbarLogger) Named(name string) *RollbarLogger {
	return &RollbarLogger{zl: l.zl.Named(name)}
}

func (l RollbarLogger) Zap() *zap.Logger { return l.zl }

func (l RollbarLogger) Sync() error { return l.zl.Sync() }

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []zap.Field) {
	var usrSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	fields := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case user.User:
			// only set one User
			if !usrSet {
				rollbar.SetPerson(v.ID, v.Username, v.Email)
				fields = append(fields, zap.String("user_id", v.ID))
				usrSet = true
			}
			continue
		case error:
			fields = append(fields, zap.Error(v))
		case map[string]interface{}:
			for k, val := range v {
				fields = append(fields, zap.Any(k, val))
			}
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
		rbArgs = append(rbArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, fields
}

func (l RollbarLogger) log(lvl zapcore.Level, msg string, args []interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	switch lvl {
	case zapcore.DebugLevel:
		rollbar.Debug(rbArgs...)
	case zapcore.InfoLevel:
		rollbar.Info(rbArgs...)
	case zapcore.WarnLevel:
		rollbar.Warning(rbArgs...)
	case zapcore.ErrorLevel:
		rollbar.Error(rbArgs...)
	default:
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	if ce := l.zl.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }

// Fatal logs then exits the process.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) { l.log(zapcore.FatalLevel, msg, args) }
