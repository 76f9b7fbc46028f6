package enums

import (
	"fmt"
	"strings"
)

// ContactPreference is how a shopper wants to be reached about a quote.
type ContactPreference string

const (
	ContactWhatsApp ContactPreference = "whatsapp"
	ContactEmail    ContactPreference = "email"
)

// legacyContactEmail is the value older storefront builds submit for email.
const legacyContactEmail = "correo"

var validContactPreferences = []ContactPreference{
	ContactWhatsApp,
	ContactEmail,
}

// IsValid reports whether the value is a canonical contact preference.
func (c ContactPreference) IsValid() bool {
	for _, candidate := range validContactPreferences {
		if candidate == c {
			return true
		}
	}
	return false
}

// Label returns the Spanish display label.
func (c ContactPreference) Label() string {
	switch c {
	case ContactWhatsApp:
		return "WhatsApp"
	case ContactEmail:
		return "Correo electrónico"
	default:
		return string(c)
	}
}

// ParseContactPreference normalizes raw input, accepting the legacy "correo" value.
func ParseContactPreference(value string) (ContactPreference, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == legacyContactEmail {
		return ContactEmail, nil
	}
	for _, candidate := range validContactPreferences {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contact preference %q", value)
}
