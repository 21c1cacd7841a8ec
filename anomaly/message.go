package anomaly

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Messages renders results as user-facing text in one locale.
type Messages struct {
	printer *message.Printer
}

// NewMessages returns a renderer for locale, falling back to Spanish when the
// tag cannot be parsed.
func NewMessages(locale string) *Messages {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return &Messages{printer: message.NewPrinter(tag)}
}

func (m *Messages) Format(r Result) string {
	if r.IsAnomaly {
		return m.printer.Sprintf("ALERTA: Gasto excede %.0f%% de la prediccion (desviacion %.2f%%)", Threshold, r.DeviationPercent)
	}
	return m.printer.Sprintf("Gasto dentro de lo normal (desviacion %.2f%%)", r.DeviationPercent)
}
