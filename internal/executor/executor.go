package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// ExecuteWithDebug runs a command attached to the current terminal with
// optional debug logging
func ExecuteWithDebug(ctx context.Context, command string, debug bool) error {
	return run(ctx, command, os.Stdin, os.Stdout, os.Stderr, debug)
}

// shellFor returns the shell and arguments used to run command
func shellFor(command string, getenv func(string) string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	shell := getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c", command}
}

func run(ctx context.Context, command string, stdin io.Reader, stdout, stderr io.Writer, debug bool) error {
	if command == "" {
		return fmt.Errorf("empty command")
	}

	shell, args := shellFor(command, os.Getenv)
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: using shell %s\n", shell)
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: executing command: %q\n", command)
	}

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if debug {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: command failed with exit code %d\n", exitErr.ExitCode())
			} else {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: command failed: %v\n", err)
			}
		}
		return fmt.Errorf("command failed: %w", err)
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: command completed successfully\n")
	}
	return nil
}
