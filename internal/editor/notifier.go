package editor

import (
	"context"

	"go.uber.org/zap"
)

// ToastLevel classifies a user notification.
type ToastLevel string

// Toast levels.
const (
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a user-visible notification.
type Toast struct {
	Level   ToastLevel
	Message string
}

// Notifier delivers toasts to the user.
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(context.Context, Toast)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, toast Toast) { f(ctx, toast) }

// LogNotifier writes toasts to a zap logger, for hosts without a UI.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, toast Toast) {
	logger := n.Logger
	if logger == nil {
		return
	}
	switch toast.Level {
	case ToastError:
		logger.Error(toast.Message, zap.String("toast", string(toast.Level)))
	case ToastWarning:
		logger.Warn(toast.Message, zap.String("toast", string(toast.Level)))
	default:
		logger.Info(toast.Message, zap.String("toast", string(toast.Level)))
	}
}
