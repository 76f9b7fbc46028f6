package enums

import "testing"

func TestParseContactPreference(t *testing.T) {
	cases := map[string]ContactPreference{
		"whatsapp": ContactWhatsApp,
		"WhatsApp": ContactWhatsApp,
		"email":    ContactEmail,
		"correo":   ContactEmail,
		" Correo ": ContactEmail,
	}
	for raw, want := range cases {
		got, err := ParseContactPreference(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", raw, want, got)
		}
	}
	if _, err := ParseContactPreference("telegram"); err == nil {
		t.Fatal("expected unknown preference to fail")
	}
}

func TestContactPreferenceLabel(t *testing.T) {
	if got := ContactWhatsApp.Label(); got != "WhatsApp" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := ContactEmail.Label(); got != "Correo electrónico" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestSubmissionStateGuards(t *testing.T) {
	if SubmissionSubmitting.CanSubmit() {
		t.Fatal("in-flight submission must block another")
	}
	for _, s := range []SubmissionState{SubmissionIdle, SubmissionSuccess, SubmissionError} {
		if !s.CanSubmit() {
			t.Fatalf("expected %s to allow submit", s)
		}
	}
	if !SubmissionError.IsTerminal() || SubmissionIdle.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
