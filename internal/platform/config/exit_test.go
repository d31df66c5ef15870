package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/fheworlds/internal/platform/config"
)

// os.Exit cannot be intercepted in-process, so the test re-executes itself.
func TestExitfTerminatesWithStatusOne(t *testing.T) {
	if os.Getenv("FHEWORLDS_TEST_EXITF") == "1" {
		config.Exitf("worlds: %s", "unknown task")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfTerminatesWithStatusOne$")
	cmd.Env = append(os.Environ(), "FHEWORLDS_TEST_EXITF=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "worlds: unknown task") {
		t.Fatalf("output = %q", string(out))
	}
}
