package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/internal/domain"
)

// Sender delivers transcripts by email.
type Sender interface {
	SendTranscript(ctx context.Context, to string, t *domain.Transcript) error
}

// dialer is the part of *gomail.Dialer the mailer uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends HTML transcript emails over SMTP.
type SMTPMailer struct {
	from   string
	dialer dialer
	logger *slog.Logger
}

// New creates an SMTP mailer. Port 465 uses implicit TLS; other ports use
// STARTTLS when the server offers it.
func New(cfg config.EmailConfig, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465

	return &SMTPMailer{
		from:   from,
		dialer: d,
		logger: logger,
	}
}

var bodyTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html><body style="font-family:-apple-system,'PingFang SC','Microsoft YaHei',sans-serif;line-height:1.7;color:#222;max-width:720px;margin:0 auto;">
<h2 style="margin-bottom:4px;">{{.Title}}</h2>
<p style="color:#888;font-size:13px;margin-top:0;">
{{- if .Author}}作者：{{.Author}}　{{end -}}
{{- if .Duration}}时长：{{printf "%.1f" .Duration}} 秒{{end -}}
</p>
{{- if .SourceURL}}
<p style="font-size:13px;">来源：<a href="{{.SourceURL}}">{{.SourceURL}}</a></p>
{{- end}}
{{- if .Summary}}
<h3>摘要</h3>
<p style="background:#f6f8fa;padding:12px;border-radius:6px;">{{.Summary}}</p>
{{- end}}
<h3>文案</h3>
{{- range .Paragraphs}}
<p>{{.}}</p>
{{- end}}
</body></html>`))

type bodyData struct {
	*domain.Transcript
	Paragraphs []string
}

// SendTranscript renders t and mails it to the given address.
func (m *SMTPMailer) SendTranscript(ctx context.Context, to string, t *domain.Transcript) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return domain.ErrMissingRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.buildMessage(to, t)
	if err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("transcript emailed", "to", to, "title", t.Title)
	return nil
}

func (m *SMTPMailer) buildMessage(to string, t *domain.Transcript) (*gomail.Message, error) {
	title := t.Title
	if title == "" {
		title = domain.FallbackTitle
	}
	view := *t
	view.Title = title

	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, bodyData{Transcript: &view, Paragraphs: paragraphs(t.Text)}); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "【视频文案】"+title)
	msg.SetBody("text/html", body.String())
	return msg, nil
}

func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
