package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor runs an external evaluator command per request with a timeout.
type Executor struct {
	command string
	args    []string
	timeout time.Duration
}

// NewExecutor creates an Executor for command.
func NewExecutor(timeout time.Duration, command string, args ...string) *Executor {
	return &Executor{
		command: command,
		args:    args,
		timeout: timeout,
	}
}

// Evaluate marshals req to the command's stdin and parses its stdout as a
// Response.
func (e *Executor) Evaluate(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.command, e.args...)

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("evaluator timeout after %v", e.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("evaluator failed: %w, stderr: %s", err, s)
		}
		return nil, fmt.Errorf("evaluator failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse evaluator response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}
