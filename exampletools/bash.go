package exampletools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"deepagent/agent"
)

// DefaultBashTimeout bounds a bash tool call when BashPolicy.Timeout is zero.
const DefaultBashTimeout = 3 * time.Second

var (
	// ErrBashCommandEmpty is returned when the command argument is blank.
	ErrBashCommandEmpty = errors.New("exampletools: bash command is empty")
	// ErrBashCommandDenied is returned when a command fails the verb
	// whitelist or contains a forbidden shell metacharacter.
	ErrBashCommandDenied = errors.New("exampletools: bash command violates policy")
	// ErrBashExecutionTimedOut is returned when the command does not finish
	// within the policy's timeout.
	ErrBashExecutionTimedOut = errors.New("exampletools: bash command timed out")
)

// allowedBashVerbs is the whitelist of command names a bash call may
// invoke. It holds no command whose main job is writing, since file
// mutation belongs to the state-class filesystem tools. Only the first word
// is checked, so writing options such as sed -i or find -delete still pass.
var allowedBashVerbs = map[string]struct{}{
	"cat": {}, "echo": {}, "find": {}, "grep": {}, "head": {},
	"ls": {}, "pwd": {}, "sed": {}, "stat": {}, "tail": {},
	"wc": {}, "which": {}, "printf": {},
}

// forbiddenBashTokens are shell metacharacters that would let a command
// escape the single-verb whitelist (piping, chaining, substitution,
// redirection).
var forbiddenBashTokens = []string{"\n", "\r", ";", "&&", "||", "|", ">", "<", "`", "$", "(", ")"}

// BashPolicy runs bash tool calls with a workspace root as working
// directory, a command verb whitelist, and a timeout. Command arguments are
// not path-checked: an absolute or ../ path reaches outside the root.
type BashPolicy struct {
	WorkspaceRoot string
	Timeout       time.Duration
}

// NewBashPolicy resolves workspaceRoot to an absolute, symlink-free
// directory and validates it exists.
func NewBashPolicy(workspaceRoot string, timeout time.Duration) (BashPolicy, error) {
	if workspaceRoot == "" {
		return BashPolicy{}, fmt.Errorf("exampletools: workspace root is required")
	}
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return BashPolicy{}, fmt.Errorf("exampletools: resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return BashPolicy{}, fmt.Errorf("exampletools: resolve workspace root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return BashPolicy{}, fmt.Errorf("exampletools: stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return BashPolicy{}, fmt.Errorf("exampletools: workspace root %q is not a directory", resolved)
	}
	if timeout <= 0 {
		timeout = DefaultBashTimeout
	}
	return BashPolicy{WorkspaceRoot: resolved, Timeout: timeout}, nil
}

// Validate rejects an empty command, any forbidden shell metacharacter, and
// any verb outside the whitelist.
func (p BashPolicy) Validate(command string) error {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return ErrBashCommandEmpty
	}
	for _, token := range forbiddenBashTokens {
		if strings.Contains(trimmed, token) {
			return fmt.Errorf("%w: forbidden token %q", ErrBashCommandDenied, token)
		}
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ErrBashCommandEmpty
	}
	if _, ok := allowedBashVerbs[fields[0]]; !ok {
		return fmt.Errorf("%w: command %q is not allowed", ErrBashCommandDenied, fields[0])
	}
	return nil
}

// BashTool returns an EffectClassExternal tool that runs one whitelisted
// shell command (see BashPolicy.Validate) with policy's workspace root as
// working directory and cooperative cancellation via the tool call's context.
func BashTool(policy BashPolicy) agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        "bash",
		Description: "Run a single read-only shell command (cat, grep, ls, find, ...) inside the workspace.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string"},
			},
			"required": []any{"command"},
		},
		EffectClass: agent.EffectClassExternal,
		Handler: func(ctx context.Context, _ agent.ToolContext, input map[string]any) (any, error) {
			command, _ := input["command"].(string)
			if err := policy.Validate(command); err != nil {
				return nil, err
			}

			timeoutCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
			defer cancel()

			cmd := exec.CommandContext(timeoutCtx, "bash", "-lc", command)
			cmd.Dir = policy.WorkspaceRoot

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: command=%q timeout=%s stdout=%q stderr=%q",
					ErrBashExecutionTimedOut, command, policy.Timeout, stdout.String(), stderr.String())
			}
			if err != nil {
				return nil, fmt.Errorf("exampletools: bash command %q failed: %w stdout=%q stderr=%q",
					command, err, stdout.String(), stderr.String())
			}
			return fmt.Sprintf("bash_ok command=%q stdout=%q stderr=%q",
				command, strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String())), nil
		},
	}
}
