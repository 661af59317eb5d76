package instance

import "testing"

func TestIDPrefersExplicitSetting(t *testing.T) {
	t.Setenv("GARANTIE_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	if got := ID(); got != "api-7" {
		t.Fatalf("expected api-7, got %q", got)
	}
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("GARANTIE_INSTANCE_ID", " ")
	t.Setenv("DYNO", "worker.2")
	if got := ID(); got != "worker.2" {
		t.Fatalf("expected worker.2, got %q", got)
	}
}

func TestIDNeverEmpty(t *testing.T) {
	t.Setenv("GARANTIE_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if ID() == "" {
		t.Fatal("expected a non-empty instance id")
	}
}
