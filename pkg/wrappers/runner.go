package wrappers

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunAll executes every wrapper concurrently and waits for all of them. A
// failing or slow scanner never cancels the others; cancelling ctx stops
// all of them, after which whatever reports exist are still collected.
// Results are returned in the order of ws.
func RunAll(ctx context.Context, ws []Wrapper, log *zap.SugaredLogger) []Result {
	results := make([]Result, len(ws))
	var g errgroup.Group
	for i, w := range ws {
		i, w := i, w
		g.Go(func() error {
			log.Infow("scanner started", "scanner", w.Scanner, "tool", w.Tool, "timeout", w.Timeout)
			res := w.Execute(ctx)
			if res.Err != nil {
				log.Warnw("scanner did not complete", "scanner", w.Scanner, "tool", w.Tool, "error", res.Err, "duration", res.Duration)
				if res.Output != "" {
					log.Debugw("scanner output", "scanner", w.Scanner, "output", res.Output)
				}
			} else {
				log.Infow("scanner finished", "scanner", w.Scanner, "tool", w.Tool, "duration", res.Duration)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
