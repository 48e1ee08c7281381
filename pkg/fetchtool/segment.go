// Package fetchtool drives the external program that downloads CT log entries to disk.
package fetchtool

import (
	"context"
	"fmt"
)

// Segment is one bounded range [Start, End) of log entries to fetch into OutputDir.
type Segment struct {
	LogURL      string
	OutputDir   string
	Start       uint64 // inclusive
	End         uint64 // exclusive
	BatchSize   uint
	Parallelism uint
	FullChain   bool
}

func (s Segment) Len() uint64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d,%d) of %s", s.Start, s.End, s.LogURL)
}

// Tool fetches a segment. A nil error means the tool reported success; the caller still
// verifies the produced artifacts.
type Tool interface {
	Fetch(ctx context.Context, seg Segment) error
}

// Counter counts the entries already present in a storage directory.
type Counter interface {
	Count(dir string) (uint64, error)
}
