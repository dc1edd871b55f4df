package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, Date = "v1.2.3", "abc1234", "2025-01-01"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	want := "finrag v1.2.3 (commit abc1234, built 2025-01-01)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
