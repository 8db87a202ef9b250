package alerts

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	return nil
}

func ValidateType(t string) (models.AlertType, error) {
	alertType := models.ParseAlertType(t)
	if alertType == "" {
		return "", errors.New("type must be 'performance', 'error', or 'behavior'")
	}
	return alertType, nil
}

// ValidateSeverity accepts an empty severity as medium.
func ValidateSeverity(s string) (models.Severity, error) {
	if s == "" {
		return models.SeverityMedium, nil
	}
	severity := models.Severity(s)
	if !severity.IsValid() {
		return "", errors.New("severity must be 'low', 'medium', 'high', or 'critical'")
	}
	return severity, nil
}

func ValidateCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return errors.New("condition is required")
	}
	return nil
}

// ValidateCooldown parses a Go duration. Empty means no cooldown.
func ValidateCooldown(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("invalid cooldown duration")
	}
	return d, nil
}

func ValidateMethods(methods []models.NotificationMethod) error {
	for _, m := range methods {
		switch m {
		case models.MethodBrowser, models.MethodConsole, models.MethodWebhook:
		default:
			return fmt.Errorf("unknown notification method %q", m)
		}
	}
	return nil
}

// ValidateSilentHours requires both bounds in "HH:MM" form.
func ValidateSilentHours(sh *models.SilentHours) error {
	if sh == nil {
		return nil
	}
	for _, v := range []string{sh.Start, sh.End} {
		if len(v) != 5 {
			return errors.New("silent hours must use HH:MM")
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return errors.New("silent hours must use HH:MM")
		}
	}
	return nil
}

// ValidateWebhookURL accepts an empty URL, which disables the webhook.
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("webhook_url must be an http or https URL")
	}
	return nil
}
