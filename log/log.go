package log

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/vuuvv/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()
var httpErrorLogger = zap.NewNop()
var defaultLogger = zap.NewNop()

func Logger() *zap.Logger {
	return logger
}

func SetLogger(l *zap.Logger) {
	logger = l
}

func DefaultLogger() *zap.Logger {
	return defaultLogger
}

func SetDefaultLogger(l *zap.Logger) {
	defaultLogger = l
	zap.ReplaceGlobals(l)
}

// HttpErrorLogger 给 http.Server.ErrorLog 使用
func HttpErrorLogger() *zap.Logger {
	return httpErrorLogger
}

func SetHttpErrorLogger(l *zap.Logger) {
	httpErrorLogger = l
}

// NewLogger 根据级别创建 logger, development 模式下输出带颜色的控制台格式
func NewLogger(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level: %s", level)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return l, nil
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return fmt.Sprintf("%+v", v)
	default:
		return cast.ToString(val)
	}
}

// CastToError 把 recover 得到的任意值转成带堆栈的 error
func CastToError(reason any) (msg string, err error) {
	var ok bool

	err, ok = reason.(error)
	if !ok {
		err = errors.NewAndSkip(toString(reason), 2)
	}
	if err == nil {
		err = errors.NewAndSkip("Unknown Error", 2)
	} else {
		err = errors.WithStackAndSkip(err, 2)
	}

	if logger.Core().Enabled(zap.DebugLevel) {
		msg = fmt.Sprintf("%+v", err)
	} else {
		//goland:noinspection GoDfaNilDereference
		msg = err.Error()
	}

	return
}

func Error(reason any, field ...zap.Field) {
	msg, err := CastToError(reason)

	logger.Error(msg, append(field, zap.Error(err))...)
}

func Warn(reason any, field ...zap.Field) {
	msg, err := CastToError(reason)

	logger.Warn(msg, append(field, zap.Error(err))...)
}

func Info(msg string, field ...zap.Field) {
	logger.Info(msg, field...)
}

func Debug(msg string, field ...zap.Field) {
	logger.Debug(msg, field...)
}
