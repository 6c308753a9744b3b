package audit

import "testing"

func TestSanitiseKey_SecretRedacted(t *testing.T) {
	t.Parallel()

	if got := SanitiseKey("DB_PASSWORD", "hunter2"); got != "set" {
		t.Errorf("secret with value: got %q, want %q", got, "set")
	}
	if got := SanitiseKey("DB_PASSWORD", ""); got != "unset" {
		t.Errorf("secret without value: got %q, want %q", got, "unset")
	}
}

func TestSanitiseKey_NonSecretPassthrough(t *testing.T) {
	t.Parallel()

	if got := SanitiseKey("DB_HOST", "localhost"); got != "localhost" {
		t.Errorf("non-secret with value: got %q, want %q", got, "localhost")
	}
	if got := SanitiseKey("DB_HOST", ""); got != "unset" {
		t.Errorf("non-secret without value: got %q, want %q", got, "unset")
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()

	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("empty path: got %q, want %q", got, "none")
	}
	if got := sanitiseConfigPath("/etc/ragcat/config.yaml"); got != "/etc/ragcat/config.yaml" {
		t.Errorf("absolute path: got %q, want %q", got, "/etc/ragcat/config.yaml")
	}
}
