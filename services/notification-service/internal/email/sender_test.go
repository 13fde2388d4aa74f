package email

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("farmacia@farmaline.local", []string{"mostrador@farmaline.local"},
		"Nueva cita confirmada", "María García, 2026-02-20 16:00")

	wantLines := []string{
		"From: farmacia@farmaline.local",
		"To: mostrador@farmaline.local",
		"Subject: Nueva cita confirmada",
		"Content-Type: text/plain; charset=utf-8",
	}
	for _, line := range wantLines {
		if !strings.Contains(msg, line+"\r\n") {
			t.Errorf("message missing header %q:\n%s", line, msg)
		}
	}
	if !strings.HasSuffix(msg, "María García, 2026-02-20 16:00\r\n") {
		t.Errorf("body not terminated correctly:\n%s", msg)
	}
	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("missing blank line between headers and body")
	}
}

func TestBuildMessage_MultipleRecipients(t *testing.T) {
	msg := buildMessage("a@x", []string{"b@x", "c@x"}, "s", "body")
	if !strings.Contains(msg, "To: b@x, c@x\r\n") {
		t.Errorf("recipients not joined:\n%s", msg)
	}
}

func TestSend_NoRecipients(t *testing.T) {
	s := NewSMTPSender(Config{Host: "localhost", Port: "1025"})
	if err := s.Send(nil, "s", "b"); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
}
