package notifier

import (
	"context"
	"log"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// ConsoleNotifier writes notifications to the process log.
type ConsoleNotifier struct {
	logger *log.Logger
}

// NewConsoleNotifier creates a console notifier. A nil logger uses the
// standard logger.
func NewConsoleNotifier(logger *log.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsoleNotifier{logger: logger}
}

// Name returns "console".
func (c *ConsoleNotifier) Name() models.NotificationMethod {
	return models.MethodConsole
}

// Send logs the notification title and message.
func (c *ConsoleNotifier) Send(_ context.Context, n *models.AlertNotification) error {
	c.logger.Printf("ALERT [%s] %s - %s", n.Severity, n.Title, n.Message)
	return nil
}

// Close is a no-op.
func (c *ConsoleNotifier) Close() error {
	return nil
}
