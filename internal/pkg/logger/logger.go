package logger

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/config"
)

type ctxKey struct{}

var base = logrus.New()

// Setup 根据配置初始化全局 logger
func Setup(cfg *config.LogConfig) {
	base.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetupSentry 配置了 DSN 时初始化 sentry，返回是否启用
func SetupSentry(cfg *config.SentryConfig) bool {
	if cfg.DSN == "" {
		base.Info("skipping sentry init")
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		base.WithError(err).Error("failed to start sentry")
		return false
	}
	return true
}

// Base 返回底层 logger，测试中用于替换输出
func Base() *logrus.Logger {
	return base
}

// NewContext 把带字段的 entry 放入 context
func NewContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// For 返回 context 中的 entry，没有则返回全局 entry
func For(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(base)
}

// Report 记录错误并上报 sentry
func Report(ctx context.Context, err error, msg string) {
	For(ctx).WithError(err).Error(msg)
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureException(err)
	}
}
