// Package notify delivers user-facing error messages. Delivery is
// fire-and-forget: a Notifier never reports back to its caller.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Notification is the frame pushed to browsers.
type Notification struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func newNotification(message string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Level:   "error",
		Message: message,
		Time:    time.Now().UTC(),
	}
}

// LogNotifier writes every notification to the log.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, message string) {
	n.log.WithField("notification", message).Warn("cart notification")
}

// Multi fans a notification out to every member in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) {
	for _, n := range m {
		n.Notify(ctx, message)
	}
}
