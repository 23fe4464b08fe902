package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPMailer sends mail through gomail.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to []string, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("email configuration not initialized")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.FromEmail, m.cfg.FromName))
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// Embedded email templates
var emailTemplates = map[string]string{
	"meeting_summary": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; margin: 10px 0; }
        td, th { border-bottom: 1px solid #eee; padding: 6px; text-align: left; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Title}}</h2>
        {{if .EndedAt}}<p>Completed {{.EndedAt}}</p>{{end}}
    </div>

    <h3>Decisions</h3>
    {{if .Decisions}}
    <table>
        <tr><th>Decision</th><th>Outcome</th><th>For</th><th>Against</th><th>Abstain</th></tr>
        {{range .Decisions}}
        <tr><td>{{.Title}}</td><td>{{.Outcome}}</td><td>{{.Tally.For}}</td><td>{{.Tally.Against}}</td><td>{{.Tally.Abstain}}</td></tr>
        {{end}}
    </table>
    {{else}}<p>No decisions were recorded.</p>{{end}}

    <h3>Action items</h3>
    {{if .ActionItems}}
    <ul>{{range .ActionItems}}<li>{{.Title}}</li>{{end}}</ul>
    {{else}}<p>No action items were recorded.</p>{{end}}

    <h3>Attendance</h3>
    <ul>{{range .Attendees}}<li>{{if .Name}}{{.Name}}{{else}}{{.UserID}}{{end}}{{if .IsPresent}} (present){{else}} (absent){{end}}</li>{{end}}</ul>

    <div class="footer">
        <p>© {{.Year}} Boardroom. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// RenderEmail executes the named embedded template against data.
func RenderEmail(name string, data interface{}) (string, error) {
	tmplContent, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("template '%s' not found", name)
	}

	tmpl, err := template.New(name).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("error parsing template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

// CurrentYear is exposed to templates.
func CurrentYear() int {
	return time.Now().Year()
}
