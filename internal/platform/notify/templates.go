package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Template is a reusable email body with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

const TemplateAppointmentBooked = "appointment-booked"

// TemplateEngine manages email templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.Register(Template{
		ID:      TemplateAppointmentBooked,
		Subject: "Confirmación de cita - {{date}}",
		Body: "Hola {{patient_name}},\n\n" +
			"Tu cita con {{doctor_name}} quedó agendada para el {{date}} a las {{time}}.\n" +
			"Motivo: {{reason}}\n\n" +
			"Si no puedes asistir, cancela la cita desde tu panel de paciente.\n\n" +
			"CitaMed",
	})
	return e
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement. Keys
// present in the template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
