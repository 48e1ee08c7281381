package loglist

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/netsec-ethz/ctwrangler/pkg/sth"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

// SizeReport is the result of querying the tree size of several logs. Sizes and Failures are
// indexed by log ID; every queried log is in exactly one of them.
type SizeReport struct {
	Sizes    map[string]uint64
	Failures map[string]error
	Total    uint64 // Sum of Sizes.
}

// Err coalesces all failures, or returns nil if there were none.
func (r *SizeReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for id, err := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
	}
	return util.ErrorsCoalesce(errs)
}

// QuerySizes queries get-sth of every log with at most parallelism concurrent requests.
// A failing log does not stop the others.
func QuerySizes(
	ctx context.Context,
	q sth.Querier,
	logs []LogDescriptor,
	parallelism int,
) *SizeReport {

	if parallelism <= 0 {
		parallelism = 1
	}
	report := &SizeReport{
		Sizes:    make(map[string]uint64, len(logs)),
		Failures: make(map[string]error),
	}
	var mu sync.Mutex // Guards the maps of report.
	total := atomic.NewUint64(0)

	g := &errgroup.Group{}
	g.SetLimit(parallelism)
	for _, l := range logs {
		l := l
		g.Go(func() error {
			s, err := q.GetSTH(ctx, l.URL)
			if err != nil {
				glog.Warningf("cannot get size of %s: %v", l, err)
				mu.Lock()
				report.Failures[l.ID] = err
				mu.Unlock()
				return nil
			}
			total.Add(s.TreeSize)
			mu.Lock()
			report.Sizes[l.ID] = s.TreeSize
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	report.Total = total.Load()
	return report
}
