package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// =============================================================================
// Mailer
// =============================================================================

// Mailer renders the workflow's emails and delivers them through a Sender.
type Mailer struct {
	sender    Sender
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

// NewMailer creates a Mailer. baseURL is the public site URL used to build
// confirmation links (e.g., "https://courseflow.dev").
func NewMailer(sender Sender, baseURL string, logger *slog.Logger) (*Mailer, error) {
	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Mailer{
		sender:    sender,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// SendConfirmation mails the confirmation link for a pending subscription.
func (m *Mailer) SendConfirmation(ctx context.Context, to, courseID, courseName, token string) error {
	confirmURL := domain.ConfirmationURL(m.baseURL, to, courseID, token)
	name := courseTitle(courseName)
	subject := fmt.Sprintf("Confirm your subscription to %s", name)

	htmlBody, err := m.render("confirmation.html", map[string]interface{}{
		"Subject":    subject,
		"CourseName": name,
		"ConfirmURL": confirmURL,
	})
	if err != nil {
		return fmt.Errorf("failed to render confirmation email template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi,

Thanks for your interest in %s. Please confirm your email address by opening the link below:

%s

If you didn't sign up, you can safely ignore this email.

The Courseflow Team
`, name, confirmURL)

	return m.deliver(ctx, KindConfirmation, Message{
		To:       to,
		Subject:  subject,
		Tag:      KindConfirmation,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendWelcome greets a subscriber who has just confirmed.
func (m *Mailer) SendWelcome(ctx context.Context, to, courseName string) error {
	name := courseTitle(courseName)
	subject := fmt.Sprintf("Welcome to %s", name)

	htmlBody, err := m.render("welcome.html", map[string]interface{}{
		"Subject":    subject,
		"CourseName": name,
	})
	if err != nil {
		return fmt.Errorf("failed to render welcome email template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi,

Your subscription to %s is confirmed. The first lesson is on its way.

Reply to this email any time if you have a question about the course.

The Courseflow Team
`, name)

	return m.deliver(ctx, KindWelcome, Message{
		To:       to,
		Subject:  subject,
		Tag:      KindWelcome,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendReminder re-sends an existing confirmation link under the given subject.
func (m *Mailer) SendReminder(ctx context.Context, to, confirmationLink, subject string) error {
	htmlBody, err := m.render("reminder.html", map[string]interface{}{
		"Subject":    subject,
		"ConfirmURL": confirmationLink,
	})
	if err != nil {
		return fmt.Errorf("failed to render reminder email template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi,

You started signing up for one of our courses but haven't confirmed your email address yet. Confirm it here:

%s

If you've changed your mind, just ignore this email.

The Courseflow Team
`, confirmationLink)

	return m.deliver(ctx, KindReminder, Message{
		To:       to,
		Subject:  subject,
		Tag:      KindReminder,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// =============================================================================
// Internal Methods
// =============================================================================

func (m *Mailer) deliver(ctx context.Context, kind string, msg Message) error {
	err := m.sender.Send(ctx, msg)
	metrics.EmailSent(kind, err)
	return err
}

func (m *Mailer) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// courseTitle turns a bare course id ("playwright-mastery") into a display
// name. Names that already contain spaces are returned unchanged.
func courseTitle(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, " ") {
		return name
	}
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	// Casers carry state and must not be shared between goroutines.
	return cases.Title(language.English).String(spaced)
}

// emailTemplateFuncs returns template functions available in email templates.
func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}
