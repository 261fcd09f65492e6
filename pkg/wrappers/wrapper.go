// Package wrappers invokes external scanners as independent tasks. Each
// task leaves native report files on disk; parsing happens afterwards.
package wrappers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/user/secgate/pkg/engine"
)

// Wrapper describes how to run one scanner and where it writes its reports.
type Wrapper struct {
	Scanner engine.Scanner
	Tool    string
	Args    []string
	Dir     string
	Env     []string
	Reports []string
	Timeout time.Duration
	// OKExitCodes lists exit statuses that mean "ran to completion". Most
	// scanners exit 1 when they find something.
	OKExitCodes []int
}

// Name is the tool and scanner kind, for logs.
func (w Wrapper) Name() string {
	return fmt.Sprintf("%s (%s)", w.Tool, w.Scanner)
}

// Report is one report file collected after a task finished.
type Report struct {
	Path string
	Data []byte
	Err  error
}

// Result is the outcome of one task. Err is the invocation error; Reports
// are collected even when Err is set so partial output is not lost.
type Result struct {
	Wrapper  Wrapper
	Err      error
	Duration time.Duration
	Output   string
	Reports  []Report
}

// Execute runs the wrapper under its own timeout. A missing binary is
// reported in Result.Err and no reports are collected, since nothing ran.
func (w Wrapper) Execute(ctx context.Context) Result {
	start := time.Now()
	res := Result{Wrapper: w}
	defer func() { res.Duration = time.Since(start) }()

	if _, err := exec.LookPath(w.Tool); err != nil {
		res.Err = fmt.Errorf("'%s' binary not found: %w", w.Tool, err)
		res.Duration = time.Since(start)
		return res
	}

	runCtx := ctx
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, w.Tool, w.Args...)
	cmd.Dir = w.Dir
	if len(w.Env) > 0 {
		cmd.Env = append(os.Environ(), w.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	res.Output = tail(out.String(), 4096)
	switch {
	case runCtx.Err() != nil:
		res.Err = fmt.Errorf("%s: %w", w.Name(), runCtx.Err())
	case err != nil && !w.okExit(err):
		res.Err = fmt.Errorf("%s failed: %w", w.Name(), err)
	}

	res.Reports = collect(w.Reports)
	res.Duration = time.Since(start)
	return res
}

func (w Wrapper) okExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	code := exitErr.ExitCode()
	if code == 0 {
		return true
	}
	for _, ok := range w.OKExitCodes {
		if code == ok {
			return true
		}
	}
	return false
}

// collect reads whatever report files exist.
func collect(paths []string) []Report {
	reports := make([]Report, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		reports = append(reports, Report{Path: p, Data: data, Err: err})
	}
	return reports
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
