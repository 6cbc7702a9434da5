package bot

import (
	"strings"
	"testing"
)

const sampleToken = "MTIzNDU2Nzg5MDEyMzQ1Njc4.GaBcDe.abcdefghijklmnopqrstuvwxyz0123456789AB"

func TestScrubCredentials_DiscordToken(t *testing.T) {
	got := ScrubCredentials("token is " + sampleToken + " ok")
	if got != "token is [REDACTED] ok" {
		t.Errorf("Discord token not scrubbed: %s", got)
	}
}

func TestScrubCredentials_Webhook(t *testing.T) {
	input := "post to https://discord.com/api/webhooks/123456/abcDEF_ghi-jkl now"
	got := ScrubCredentials(input)
	if got != "post to [REDACTED] now" {
		t.Errorf("webhook not scrubbed: %s", got)
	}
}

func TestScrubCredentials_ExactSecret(t *testing.T) {
	secret := "not-token-shaped-secret"
	got := ScrubCredentials("value "+secret, secret)
	if strings.Contains(got, secret) {
		t.Errorf("exact secret not scrubbed: %s", got)
	}
	// Very short secrets would redact ordinary words.
	if got := ScrubCredentials("ab ab ab", "ab"); got != "ab ab ab" {
		t.Errorf("short secret scrubbed: %s", got)
	}
}

func TestScrubCredentials_GenericKeyValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"token", "token: mysecrettoken12345"},
		{"password", "password=MyStr0ngP@ssword!"},
		{"passphrase", "passphrase = hunter2hunter2"},
		{"authorization", "authorization=abcdefghijkl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScrubCredentials(tt.input); got == tt.input {
				t.Errorf("generic pattern %q not scrubbed: %s", tt.name, got)
			}
		})
	}
}

func TestScrubCredentials_NoFalsePositive(t *testing.T) {
	inputs := []string{
		"hello world",
		"Command ntm executed!",
		"alice: !echo one two",
		"Loaded cog Ntm (1 command)",
		"token set",
	}
	for _, input := range inputs {
		if got := ScrubCredentials(input); got != input {
			t.Errorf("false positive on %q: got %q", input, got)
		}
	}
}
