package notifier

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log. Used when email is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info("Notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
