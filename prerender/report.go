package prerender

import (
	"errors"
	"fmt"
	"time"
)

// Result is the outcome of one route.
type Result struct {
	Path     string
	File     string
	Bytes    int
	Duration time.Duration
	// MetaFallback is set when metadata could not be fully resolved.
	MetaFallback bool
	// RenderFallback is set when the page was written without rendered app HTML.
	RenderFallback bool
	Warnings       []string
	Err            error
}

// Report summarizes a prerender run.
type Report struct {
	Results   []Result
	Rendered  int
	Fallbacks int
	Failed    int
	Duration  time.Duration
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.Err != nil:
		r.Failed++
	case res.MetaFallback || res.RenderFallback:
		r.Fallbacks++
		r.Rendered++
	default:
		r.Rendered++
	}
}

// Err returns the joined errors of every route that could not be written.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Path, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Bytes returns the total size of the written files.
func (r *Report) Bytes() int {
	total := 0
	for _, res := range r.Results {
		total += res.Bytes
	}
	return total
}

func (r *Report) String() string {
	return fmt.Sprintf("%d rendered, %d with fallbacks, %d failed in %s",
		r.Rendered, r.Fallbacks, r.Failed, r.Duration.Round(time.Millisecond))
}
