package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"go.uber.org/zap"
)

const (
	CommandCheck   = "check"
	CommandCompile = "compile"
)

const waitDelay = time.Second

// ExecCompiler 通过子进程调用外部编译器:
//
//	<path> [args...] --version
//	<path> [args...] check    < config.json > diagnostics.json
//	<path> [args...] compile  < config.json > header.hpp
type ExecCompiler struct {
	Path    string
	Args    []string
	Timeout time.Duration

	resolved string
	version  string
}

func NewExecCompiler(path string, args []string, timeout time.Duration) *ExecCompiler {
	return &ExecCompiler{Path: path, Args: args, Timeout: timeout}
}

func (c *ExecCompiler) Version() string {
	return c.version
}

func (c *ExecCompiler) Initialize(ctx context.Context) error {
	resolved, err := exec.LookPath(c.Path)
	if err != nil {
		return errors.Wrapf(err, "compiler %s not found", c.Path)
	}
	c.resolved = resolved

	out, err := c.run(ctx, "", "--version")
	if err != nil {
		return errors.Wrap(err, "read compiler version")
	}
	c.version = strings.TrimSpace(out)
	log.Info("Compiler ready", zap.String("path", c.resolved), zap.String("version", c.version))
	return nil
}

type execDiagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (c *ExecCompiler) Validate(ctx context.Context, jsonText string) ([]core.Diagnostic, error) {
	out, err := c.run(ctx, jsonText, CommandCheck)
	if err != nil {
		return nil, err
	}
	var raw []execDiagnostic
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, errors.Wrapf(err, "invalid diagnostics from compiler: %q", truncate(out, 200))
	}
	diags := make([]core.Diagnostic, 0, len(raw))
	for _, d := range raw {
		severity := core.SeverityError
		if strings.EqualFold(d.Severity, string(core.SeverityWarning)) {
			severity = core.SeverityWarning
		}
		diags = append(diags, core.Diagnostic{Severity: severity, Message: d.Message})
	}
	return diags, nil
}

func (c *ExecCompiler) Compile(ctx context.Context, jsonText string) (string, error) {
	return c.run(ctx, jsonText, CommandCompile)
}

func (c *ExecCompiler) run(ctx context.Context, stdin string, command string) (string, error) {
	if c.resolved == "" {
		return "", errors.New("compiler not initialized")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.Args...), command)
	cmd := exec.CommandContext(ctx, c.resolved, args...)
	// 超时被杀掉后, 子进程留下的管道最多再等 WaitDelay
	cmd.WaitDelay = waitDelay
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug("Compiler invoked", zap.String("command", command), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.Errorf("%s exited with code %d: %s", command, exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String()), 500))
		}
		return "", errors.Wrapf(err, "run compiler %s", command)
	}
	return stdout.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
