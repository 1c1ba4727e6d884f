package main

import (
	"flag"
	"os"
	"os/exec"
	"testing"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"capturectl"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestMainNoDueEvents(t *testing.T) {
	t.Setenv("MEALSHARE_STORAGE", "memory")

	withCLIArgs(t, nil, func() {
		main()
	})
}

func TestMainDryRunEmpty(t *testing.T) {
	t.Setenv("MEALSHARE_STORAGE", "memory")

	withCLIArgs(t, []string{"-dry-run"}, func() {
		main()
	})
}

func TestMainUnknownEventExits(t *testing.T) {
	if os.Getenv("CAPTURECTL_TEST_EXIT") == "1" {
		withCLIArgs(t, []string{"-event=missing"}, func() {
			main()
		})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainUnknownEventExits")
	cmd.Env = append(os.Environ(), "CAPTURECTL_TEST_EXIT=1", "MEALSHARE_STORAGE=memory")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
