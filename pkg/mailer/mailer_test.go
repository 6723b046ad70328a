package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/internal/domain"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func newTestMailer(d dialer) *SMTPMailer {
	return &SMTPMailer{
		from:   "bot@example.com",
		dialer: d,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func rendered(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return buf.String()
}

func TestNew(t *testing.T) {
	m := New(config.EmailConfig{Host: "smtp.example.com", Port: 465, User: "u@example.com", Password: "p"}, nil)

	if m.from != "u@example.com" {
		t.Errorf("from = %q, want user when EMAIL_FROM is empty", m.from)
	}
	d, ok := m.dialer.(*gomail.Dialer)
	if !ok {
		t.Fatalf("dialer = %T", m.dialer)
	}
	if !d.SSL || d.Host != "smtp.example.com" || d.Port != 465 {
		t.Errorf("dialer = %+v", d)
	}

	m = New(config.EmailConfig{Host: "h", Port: 587, User: "u", From: "f@example.com"}, nil)
	if m.from != "f@example.com" {
		t.Errorf("from = %q", m.from)
	}
	if m.dialer.(*gomail.Dialer).SSL {
		t.Error("port 587 should not use implicit TLS")
	}
}

func TestSMTPMailer_SendTranscript(t *testing.T) {
	d := &recordingDialer{}
	m := newTestMailer(d)

	err := m.SendTranscript(context.Background(), " reader@example.com ", &domain.Transcript{
		Title:     "周末<爬山>",
		Author:    "张三",
		SourceURL: "https://v.douyin.com/abc/",
		Duration:  12.34,
		Text:      "第一段\n\n第二段",
		Summary:   "爬山",
	})
	if err != nil {
		t.Fatalf("SendTranscript() error = %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(d.sent))
	}

	msg := d.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "reader@example.com" {
		t.Errorf("To = %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "【视频文案】周末<爬山>" {
		t.Errorf("Subject = %v", got)
	}

	raw := rendered(t, msg)
	body, err := decodedBody(raw)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, want := range []string{"周末&lt;爬山&gt;", "作者：张三", "时长：12.3 秒", "<p>第一段</p>", "<p>第二段</p>", "摘要"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSMTPMailer_MissingRecipient(t *testing.T) {
	d := &recordingDialer{}
	err := newTestMailer(d).SendTranscript(context.Background(), "  ", &domain.Transcript{})
	if !errors.Is(err, domain.ErrMissingRecipient) {
		t.Errorf("error = %v, want ErrMissingRecipient", err)
	}
	if len(d.sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestSMTPMailer_FallbackTitle(t *testing.T) {
	d := &recordingDialer{}
	if err := newTestMailer(d).SendTranscript(context.Background(), "a@example.com", &domain.Transcript{Text: "x"}); err != nil {
		t.Fatalf("SendTranscript() error = %v", err)
	}
	if got := d.sent[0].GetHeader("Subject"); got[0] != "【视频文案】"+domain.FallbackTitle {
		t.Errorf("Subject = %v", got)
	}
}

func TestSMTPMailer_DialError(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}
	err := newTestMailer(d).SendTranscript(context.Background(), "a@example.com", &domain.Transcript{})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v", err)
	}
}

func TestParagraphs(t *testing.T) {
	got := paragraphs(" a \n\n\tb\n")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("paragraphs() = %q", got)
	}
}

// decodedBody returns the quoted-printable body of a rendered single-part message.
func decodedBody(raw string) (string, error) {
	i := strings.Index(raw, "\r\n\r\n")
	if i < 0 {
		return raw, nil
	}
	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw[i+4:])))
	return string(b), err
}
