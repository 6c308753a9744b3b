package commands

import "testing"

func TestServeAddr_EnvReplacesFlagDefaults(t *testing.T) {
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")

	cmd := NewServeCmd()

	host, port := serveAddr(cmd, "127.0.0.1", 8080)
	if host != "0.0.0.0" {
		t.Errorf("host = %q, want env value %q", host, "0.0.0.0")
	}
	if port != 9090 {
		t.Errorf("port = %d, want env value 9090", port)
	}
}

func TestServeAddr_ExplicitFlagBeatsEnv(t *testing.T) {
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")

	cmd := NewServeCmd()
	if err := cmd.Flags().Set("host", "10.1.2.3"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("port", "7070"); err != nil {
		t.Fatal(err)
	}

	host, port := serveAddr(cmd, "10.1.2.3", 7070)
	if host != "10.1.2.3" {
		t.Errorf("host = %q, want flag value %q", host, "10.1.2.3")
	}
	if port != 7070 {
		t.Errorf("port = %d, want flag value 7070", port)
	}
}

func TestServeAddr_NoEnvNoFlags(t *testing.T) {
	t.Setenv("SERVER_HOST", "")
	t.Setenv("SERVER_PORT", "")

	cmd := NewServeCmd()

	host, port := serveAddr(cmd, "127.0.0.1", 8080)
	if host != "127.0.0.1" || port != 8080 {
		t.Errorf("addr = %s:%d, want defaults 127.0.0.1:8080", host, port)
	}
}
