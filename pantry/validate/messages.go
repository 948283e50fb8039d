package validate

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// MessageProvider provides validation error messages per locale.
type MessageProvider struct {
	mu       sync.RWMutex
	messages map[string]map[string]string // locale -> key -> message
	locale   string
	fallback string
}

// NewMessageProvider creates an empty message provider for "en".
func NewMessageProvider() *MessageProvider {
	return &MessageProvider{
		messages: make(map[string]map[string]string),
		locale:   "en",
		fallback: "en",
	}
}

// DefaultMessages returns a message provider with English messages.
func DefaultMessages() *MessageProvider {
	m := NewMessageProvider()
	m.RegisterLocale("en", englishMessages)
	return m
}

// MessagesForLocale returns a provider with every built-in locale
// registered and locale selected.
func MessagesForLocale(locale string) *MessageProvider {
	m := NewMessageProvider()
	m.RegisterBuiltinLocales()
	m.SetLocale(locale)
	return m
}

// RegisterBuiltinLocales registers all built-in locales.
func (m *MessageProvider) RegisterBuiltinLocales() {
	m.RegisterLocale("en", englishMessages)
	m.RegisterLocale("es", spanishMessages)
	m.RegisterLocale("fr", frenchMessages)
	m.RegisterLocale("de", germanMessages)
}

// SetLocale sets the current locale.
func (m *MessageProvider) SetLocale(locale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locale = locale
}

// Locale returns the current locale.
func (m *MessageProvider) Locale() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locale
}

// RegisterLocale registers messages for a locale.
func (m *MessageProvider) RegisterLocale(locale string, messages map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[locale] = messages
}

// AddMessage adds or updates a single message for a locale.
func (m *MessageProvider) AddMessage(locale, key, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages[locale] == nil {
		m.messages[locale] = make(map[string]string)
	}
	m.messages[locale][key] = message
}

// Get returns the message for key in the current locale, falling back to
// the fallback locale. {field} and {param} are substituted.
func (m *MessageProvider) Get(key, field, param string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, loc := range [...]string{m.locale, m.fallback} {
		if msg, ok := m.messages[loc][key]; ok {
			msg = strings.ReplaceAll(msg, "{field}", field)
			return strings.ReplaceAll(msg, "{param}", param)
		}
	}
	return fmt.Sprintf("%s validation failed for %s", key, field)
}

// SupportedLocales lists the built-in locales, default first.
var SupportedLocales = []string{"en", "es", "fr", "de"}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
})

// MatchLocale picks the best built-in locale for an Accept-Language
// header value. It returns "en" when nothing matches or the header
// cannot be parsed.
func MatchLocale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return SupportedLocales[0]
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return SupportedLocales[0]
	}
	return SupportedLocales[idx]
}

var englishMessages = map[string]string{
	"required":      "{field} is required",
	"email":         "{field} must be a valid email address",
	"personalemail": "{field} must use a personal email provider",
	"businessemail": "{field} must not use a personal email provider",
	"min":           "{field} must be at least {param}",
	"max":           "{field} must be at most {param}",
	"len":           "{field} must be exactly {param}",
	"oneof":         "{field} must be one of [{param}]",
}

var spanishMessages = map[string]string{
	"required":      "{field} es obligatorio",
	"email":         "{field} debe ser una dirección de correo válida",
	"personalemail": "{field} debe usar un proveedor de correo personal",
	"businessemail": "{field} no debe usar un proveedor de correo personal",
	"min":           "{field} debe ser al menos {param}",
	"max":           "{field} debe ser como máximo {param}",
	"len":           "{field} debe tener exactamente {param}",
	"oneof":         "{field} debe ser uno de [{param}]",
}

var frenchMessages = map[string]string{
	"required":      "{field} est obligatoire",
	"email":         "{field} doit être une adresse email valide",
	"personalemail": "{field} doit utiliser un fournisseur de messagerie personnel",
	"businessemail": "{field} ne doit pas utiliser un fournisseur de messagerie personnel",
	"min":           "{field} doit être au moins {param}",
	"max":           "{field} doit être au maximum {param}",
	"len":           "{field} doit être exactement {param}",
	"oneof":         "{field} doit être l'un de [{param}]",
}

var germanMessages = map[string]string{
	"required":      "{field} ist erforderlich",
	"email":         "{field} muss eine gültige E-Mail-Adresse sein",
	"personalemail": "{field} muss einen privaten E-Mail-Anbieter verwenden",
	"businessemail": "{field} darf keinen privaten E-Mail-Anbieter verwenden",
	"min":           "{field} muss mindestens {param} sein",
	"max":           "{field} darf höchstens {param} sein",
	"len":           "{field} muss genau {param} sein",
	"oneof":         "{field} muss einer von [{param}] sein",
}
