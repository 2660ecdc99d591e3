package capstonesys

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/sh"
)

// Replaced in tests to fake external tools.
var (
	execCommandContext = exec.CommandContext
	execLookPath       = exec.LookPath
)

// toolCommand describes one external tool invocation.
type toolCommand struct {
	step string   // Step name used in errors ("CMake", "Make", ...)
	dir  string   // Working directory
	env  []string // Extra KEY=VALUE entries on top of the process and config env
	name string
	args []string
}

func (c toolCommand) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// commandEnv returns the process environment with config.Env and extra applied.
func commandEnv(config *BuildConfig, extra []string) []string {
	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	return append(env, extra...)
}

// runTool runs a blocking child process and records its combined output.
//
// Any non-zero exit status is a tool error carrying the captured output.
func runTool(ctx context.Context, config *BuildConfig, result *BuildResult, tc toolCommand) error {
	cmd := execCommandContext(ctx, tc.name, tc.args...)
	cmd.Dir = tc.dir
	cmd.Env = commandEnv(config, tc.env)

	config.logger().Debug("running tool", "step", tc.step, "cmd", tc.String(), "dir", tc.dir)

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s", tc.String()),
			fmt.Sprintf("Working directory: %s", tc.dir))
	}

	if err != nil {
		return toolError(tc.step, BuildError(tc.step, result.Output, exitError(tc.name, err)))
	}
	return nil
}

// outputTool runs a child process and returns its standard output.
func outputTool(ctx context.Context, config *BuildConfig, tc toolCommand) (string, error) {
	cmd := execCommandContext(ctx, tc.name, tc.args...)
	cmd.Dir = tc.dir
	cmd.Env = commandEnv(config, tc.env)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	config.logger().Debug("running tool", "step", tc.step, "cmd", tc.String())

	out, err := cmd.Output()
	if err != nil {
		return "", BuildError(tc.step, splitOutput(stderr.Bytes()), exitError(tc.name, err))
	}
	return string(out), nil
}

func exitError(name string, err error) error {
	return fmt.Errorf("%s exited with status %d: %w", name, sh.ExitStatus(err), err)
}
