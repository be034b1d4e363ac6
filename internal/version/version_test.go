package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	defer func() { Version = old }()

	got := Info()
	if !strings.HasPrefix(got, "todomanager v9.9.9 ") {
		t.Errorf("Info() = %q, want todomanager v9.9.9 prefix", got)
	}
}
