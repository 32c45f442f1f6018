package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
// name попадает в лог, чтобы было понятно, какая горутина упала.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer Recover(name)
		fn(ctx)
	}()
}

// Recover логирует panic вместе со стеком. Вызывается только через defer.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Entry(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("Panic in goroutine")
	}
}
