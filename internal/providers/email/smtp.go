package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	gomail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg  Config
	tmpl *template.Template
}

func NewSMTP(cfg Config) (*SMTPProvider, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &SMTPProvider{cfg: cfg, tmpl: tmpl}, nil
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(p.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	client, err := gomail.NewClient(p.cfg.Host,
		gomail.WithPort(p.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(p.cfg.Username),
		gomail.WithPassword(p.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return p.Send(ctx, to, p.subjectFor(templateName, data), body.String())
}

func (p *SMTPProvider) subjectFor(templateName string, data interface{}) string {
	dataMap, ok := data.(map[string]interface{})
	if ok {
		if subj, exists := dataMap["subject"].(string); exists {
			return subj
		}
	}

	switch templateName {
	case "invite_member":
		if ok {
			if orgName, found := dataMap["org_name"].(string); found {
				return fmt.Sprintf("You're invited to join %s", orgName)
			}
		}
		return "You're invited to join an organization"
	case "organization_created":
		return "Your organization is ready"
	default:
		return "Notification"
	}
}
