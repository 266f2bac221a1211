package version

import "testing"

// set overrides the build variables for the duration of the test.
func set(t *testing.T, v, c, b string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = v, c, b
}

func TestString(t *testing.T) {
	tests := []struct {
		name                     string
		version, commit, buildAt string
		want                     string
	}{
		{"defaults", "dev", "unknown", "unknown", "dev (unknown) built unknown"},
		{"release", "1.2.3", "abc1234", "2025-01-15T10:00:00Z", "1.2.3 (abc1234) built 2025-01-15T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set(t, tt.version, tt.commit, tt.buildAt)
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	set(t, "0.4.0", "abc1234", "unknown")
	if got, want := UserAgent(), "insider-trades/0.4.0"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}

func TestDefaultValues(t *testing.T) {
	// ldflags may overwrite these in release builds, but never with empty strings.
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}
