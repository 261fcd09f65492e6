package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// Format selects the rendering written to the output location.
type Format string

const (
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, sarif, markdown (or md).
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, sarif or markdown)", v)
}

// Encode renders r in the given format.
func Encode(w io.Writer, format Format, r *Report) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case FormatSARIF:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(ToSARIF(r))
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	}
	return fmt.Errorf("unknown report format %q", format)
}

// Write renders r to path. The file is written next to its final name and
// renamed into place so a failed write never leaves a truncated report. Any
// failure is a *engine.ReportWriteError.
func Write(path string, format Format, r *Report) error {
	var buf bytes.Buffer
	if err := Encode(&buf, format, r); err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &engine.ReportWriteError{Target: path, Err: err}
	}
	return nil
}

// Decode parses a unified JSON report.
func Decode(rd io.Reader) (*Report, error) {
	var r Report
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode unified report: %w", err)
	}
	if r.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported unified report schema %q (want %s)", r.SchemaVersion, SchemaVersion)
	}
	return &r, nil
}

// Read loads a unified JSON report from disk.
func Read(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
