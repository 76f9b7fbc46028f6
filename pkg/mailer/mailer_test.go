package mailer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

func sampleMessage() Message {
	return Message{
		From:    "cotizaciones@envasesoluciones.com",
		To:      []string{"ventas@envasesoluciones.com"},
		ReplyTo: "ana@example.com",
		Subject: "Nueva Cotización - Ana Mora",
		Text:    "texto plano",
		HTML:    "<p>html</p>",
		Attachments: []Attachment{{
			Filename:    "cotizacion-ana-1760000000000.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.3 fake"),
		}},
	}
}

func TestBuildProducesMultipartMessage(t *testing.T) {
	msg, err := Build(sampleMessage())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"multipart/alternative",
		"text/plain",
		"text/html",
		"application/pdf",
		"cotizacion-ana-1760000000000.pdf",
		"ventas@envasesoluciones.com",
		"ana@example.com",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected message to contain %q", want)
		}
	}
}

func TestBuildRequiresRecipients(t *testing.T) {
	m := sampleMessage()
	m.To = nil
	if _, err := Build(m); err == nil {
		t.Fatal("expected error without recipients")
	}
}

func TestBuildRejectsInvalidSender(t *testing.T) {
	m := sampleMessage()
	m.From = "not an address"
	if _, err := Build(m); err == nil {
		t.Fatal("expected invalid from address to fail")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	sender, err := New(config.MailConfig{Driver: "log"}, logg)
	if err != nil {
		t.Fatalf("New(log): %v", err)
	}
	if _, ok := sender.(*LogSender); !ok {
		t.Fatalf("expected *LogSender, got %T", sender)
	}

	sender, err = New(config.MailConfig{Driver: "smtp", Host: "smtp.example.com", Port: 587}, logg)
	if err != nil {
		t.Fatalf("New(smtp): %v", err)
	}
	if _, ok := sender.(*SMTPSender); !ok {
		t.Fatalf("expected *SMTPSender, got %T", sender)
	}

	if _, err := New(config.MailConfig{Driver: "pigeon"}, logg); err == nil {
		t.Fatal("expected unknown driver to fail")
	}
}

func TestNewSMTPSenderValidates(t *testing.T) {
	if _, err := NewSMTPSender(config.MailConfig{}); err == nil {
		t.Fatal("expected missing host to fail")
	}
	if _, err := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", TLSPolicy: "sometimes"}); err == nil {
		t.Fatal("expected invalid tls policy to fail")
	}
}

func TestLogSenderLogsEnvelope(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(logger.New(logger.Options{ServiceName: "test", Output: &buf}))

	if err := sender.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "mail.log_driver.sent") || !strings.Contains(out, "cotizacion-ana-1760000000000.pdf") {
		t.Fatalf("unexpected log output %s", out)
	}
}
