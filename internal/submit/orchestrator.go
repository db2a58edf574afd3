package submit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// JobResult is the terminal report for one submitted file.
type JobResult struct {
	Path       string
	OutputPath string
	Err        error
	Elapsed    time.Duration
}

// RunBatch converts every path, at most parallel at a time, invoking report
// for each job as it completes (completion order, not submission order).
// One job's failure never cancels or corrupts another: the group collects
// per-job results instead of aborting, and each job owns its own keys, temp
// files and output path. Returns the number of failed jobs.
func (s *Submitter) RunBatch(ctx context.Context, paths []string, parallel int, report func(JobResult)) int {
	if report == nil {
		report = func(JobResult) {}
	}
	run := func(path string) JobResult {
		start := time.Now()
		out, err := s.Submit(ctx, path)
		return JobResult{Path: path, OutputPath: out, Err: err, Elapsed: time.Since(start)}
	}

	if parallel <= 1 || len(paths) == 1 {
		failed := 0
		for _, p := range paths {
			res := run(p)
			if res.Err != nil {
				failed++
			}
			report(res)
		}
		return failed
	}

	results := make(chan JobResult)
	go func() {
		var eg errgroup.Group
		eg.SetLimit(parallel)
		for _, p := range paths {
			eg.Go(func() error {
				results <- run(p)
				return nil
			})
		}
		_ = eg.Wait()
		close(results)
	}()

	failed := 0
	for res := range results {
		if res.Err != nil {
			failed++
		}
		report(res)
	}
	return failed
}
