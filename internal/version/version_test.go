package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInfoIncludesOptionalFields(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := Info(false); got != "monogen 1.2.3\n" {
		t.Fatalf("Info = %q", got)
	}

	GitCommit, BuildDate = "abc123", "2024-01-15T10:30:00Z"
	got := Info(false)
	for _, want := range []string{"commit: abc123", "built:  2024-01-15T10:30:00Z"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Info missing %q:\n%s", want, got)
		}
	}
}

func TestColoredKeepsText(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = true

	cases := []string{"0.1.0-dev", "1.2.3", "nightly"}
	for _, v := range cases {
		Version = v
		if got := Colored(); got != v {
			t.Fatalf("Colored(%q) = %q", v, got)
		}
	}
}
