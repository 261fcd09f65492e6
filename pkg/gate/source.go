package gate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/wrappers"
)

// Source is one native report handed to the gate. Err is set when the
// report could not be obtained at all.
type Source struct {
	Scanner engine.Scanner
	Name    string
	Data    []byte
	Err     error
}

// LoadSources reads report files from disk. A missing or unreadable file is
// not an error of the run; it becomes a Source whose scanner is unavailable.
func LoadSources(inputs map[engine.Scanner][]string) []Source {
	var out []Source
	for _, kind := range engine.Scanners {
		for _, path := range inputs[kind] {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			src := Source{Scanner: kind, Name: path}
			data, err := os.ReadFile(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				src.Err = &engine.UnavailableError{Scanner: kind, Reason: "report not found: " + path}
			case err != nil:
				src.Err = &engine.UnavailableError{Scanner: kind, Reason: err.Error()}
			default:
				src.Data = data
			}
			out = append(out, src)
		}
	}
	return out
}

// FromResults turns finished scanner tasks into sources. Reports left behind
// by a task that timed out or was cancelled are still handed over for
// parsing. Any other task failure makes its reports unavailable: the file may
// predate the run or be cut short by a crash.
func FromResults(results []wrappers.Result) []Source {
	var out []Source
	for _, res := range results {
		kind := res.Wrapper.Scanner
		if len(res.Reports) == 0 {
			reason := "scanner produced no report"
			if res.Err != nil {
				reason = res.Err.Error()
			}
			out = append(out, Source{
				Scanner: kind,
				Name:    res.Wrapper.Tool,
				Err:     &engine.UnavailableError{Scanner: kind, Reason: reason},
			})
			continue
		}
		for _, rep := range res.Reports {
			src := Source{Scanner: kind, Name: rep.Path, Data: rep.Data}
			switch {
			case rep.Err != nil:
				reason := "report not found: " + rep.Path
				if !errors.Is(rep.Err, fs.ErrNotExist) {
					reason = rep.Err.Error()
				}
				if res.Err != nil {
					reason = fmt.Sprintf("%s (%v)", reason, res.Err)
				}
				src.Data = nil
				src.Err = &engine.UnavailableError{Scanner: kind, Reason: reason}
			case res.Err != nil && !interrupted(res.Err):
				src.Data = nil
				src.Err = &engine.UnavailableError{Scanner: kind, Reason: fmt.Sprintf("report %s not trusted: %v", rep.Path, res.Err)}
			}
			out = append(out, src)
		}
	}
	return out
}

// interrupted reports whether a task stopped because of its deadline or a
// cancelled run rather than failing on its own.
func interrupted(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
