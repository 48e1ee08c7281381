// Package wrangler incrementally mirrors the entries of one CT log to local storage.
//
// A run loads the checkpoint of the log, obtains its current tree head, and fetches the missing
// entries in segments of at most Stride entries with an external tool. After each segment the
// number of entries in storage is verified and the checkpoint advanced. A run can be interrupted
// at any point and the next run resumes from the last verified segment.
package wrangler

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/trillian/util/clock"

	"github.com/netsec-ethz/ctwrangler/pkg/checkpoint"
	"github.com/netsec-ethz/ctwrangler/pkg/fetchtool"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

type State int

const (
	Init State = iota
	Fetching
	Verifying
	Synced   // Nothing to fetch.
	CaughtUp // Fetched up to the tree size.
	ConsistencyViolation
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Fetching:
		return "FETCHING"
	case Verifying:
		return "VERIFYING"
	case Synced:
		return "SYNCED"
	case CaughtUp:
		return "CAUGHT_UP"
	case ConsistencyViolation:
		return "CONSISTENCY_VIOLATION"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultStride      = 100_000
	DefaultBatchSize   = 256
	DefaultParallelism = 4
)

// Config identifies the log and how to fetch it.
type Config struct {
	LogID       string
	LogURL      string
	StoragePath string // One file per entry is stored here.

	Stride      uint64 // Maximum number of entries per segment.
	BatchSize   uint   // Entries per get-entries request of the fetch tool.
	Parallelism uint   // Concurrent requests of the fetch tool.
}

func (c *Config) validate() error {
	switch {
	case c.LogID == "":
		return fmt.Errorf("%w: empty log ID", ErrInvalidInvocation)
	case c.LogURL == "":
		return fmt.Errorf("%w: empty log URL", ErrInvalidInvocation)
	case c.StoragePath == "":
		return fmt.Errorf("%w: empty storage path", ErrInvalidInvocation)
	case c.Stride == 0:
		return fmt.Errorf("%w: stride must be positive", ErrInvalidInvocation)
	case c.BatchSize == 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidInvocation)
	case c.Parallelism == 0:
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidInvocation)
	}
	return nil
}

// Wrangler synchronizes one log. It is not safe for concurrent use, and only one Wrangler
// may exist per log at any time.
type Wrangler struct {
	cfg     Config
	store   checkpoint.Store
	querier sth.Querier
	tool    fetchtool.Tool
	counter fetchtool.Counter
	metrics *Metrics
	clock   clock.TimeSource

	state State
}

type Option func(*Wrangler)

func WithMetrics(m *Metrics) Option {
	return func(w *Wrangler) { w.metrics = m }
}

func WithClock(c clock.TimeSource) Option {
	return func(w *Wrangler) { w.clock = c }
}

func WithCounter(c fetchtool.Counter) Option {
	return func(w *Wrangler) { w.counter = c }
}

func New(
	cfg Config,
	store checkpoint.Store,
	querier sth.Querier,
	tool fetchtool.Tool,
	opts ...Option,
) (*Wrangler, error) {

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil || querier == nil || tool == nil {
		return nil, fmt.Errorf("%w: missing checkpoint store, querier or fetch tool",
			ErrInvalidInvocation)
	}
	w := &Wrangler{
		cfg:     cfg,
		store:   store,
		querier: querier,
		tool:    tool,
		counter: fetchtool.DirCounter{},
		clock:   clock.System,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	if fs, ok := store.(*checkpoint.FileStore); ok {
		if same, err := samePath(fs.Dir(), cfg.StoragePath); err != nil || same {
			return nil, fmt.Errorf("%w: checkpoints and entries must be in different directories",
				ErrInvalidInvocation)
		}
	}
	return w, nil
}

func (w *Wrangler) State() State {
	return w.state
}

func (w *Wrangler) setState(s State) {
	w.state = s
	w.metrics.state.Set(float64(s), w.cfg.LogID)
}

// Run performs one synchronization pass and returns the terminal state, Synced or CaughtUp.
// On error, the returned state is the one in which the run stopped.
func (w *Wrangler) Run(ctx context.Context) (State, error) {
	err := w.run(ctx)
	if err != nil {
		w.metrics.failures.Inc(w.cfg.LogID, errorKind(err))
	}
	return w.state, err
}

func (w *Wrangler) run(ctx context.Context) error {
	id := w.cfg.LogID
	w.setState(Init)

	cp, err := w.loadCheckpoint(ctx)
	if err != nil {
		return err
	}
	w.metrics.nextIndex.Set(float64(cp.NextIndex), id)

	observed, err := w.querier.GetSTH(ctx, w.cfg.LogURL)
	if err != nil {
		return fmt.Errorf("%w: log %s: %w", ErrNetworkFailure, id, err)
	}
	w.metrics.treeSize.Set(float64(observed.TreeSize), id)

	if recorded := cp.LastSTH; recorded != nil {
		if observed.TreeSize < recorded.TreeSize {
			w.setState(ConsistencyViolation)
			glog.Errorf("log %s shrank: recorded %s, observed %s", id, recorded, observed)
			return &ConsistencyError{
				LogID:    id,
				Recorded: recorded,
				Observed: observed,
			}
		}
		if observed.Timestamp < recorded.Timestamp {
			glog.Warningf("log %s: tree head timestamp went back from %s to %s",
				id, recorded.Time(), observed.Time())
		}
	}

	if observed.TreeSize == cp.NextIndex {
		if !sameTreeHead(cp.LastSTH, observed) {
			cp.LastSTH = observed
			if err := w.persist(ctx, cp); err != nil {
				return err
			}
		}
		glog.Infof("log %s is synced at %s entries", id, humanize.Comma(int64(cp.NextIndex)))
		w.setState(Synced)
		return nil
	}

	// Record the target before fetching towards it.
	cp.LastSTH = observed
	if err := w.persist(ctx, cp); err != nil {
		return err
	}
	glog.Infof("log %s: fetching %s entries, from %s to %s",
		id,
		humanize.Comma(int64(observed.TreeSize-cp.NextIndex)),
		humanize.Comma(int64(cp.NextIndex)),
		humanize.Comma(int64(observed.TreeSize)))

	runStart := w.clock.Now()
	firstIndex := cp.NextIndex
	for cp.NextIndex < observed.TreeSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("log %s stopped at %d: %w", id, cp.NextIndex, err)
		}
		seg := fetchtool.Segment{
			LogURL:      w.cfg.LogURL,
			OutputDir:   w.cfg.StoragePath,
			Start:       cp.NextIndex,
			End:         util.Min(util.AddSaturating(cp.NextIndex, w.cfg.Stride), observed.TreeSize),
			BatchSize:   w.cfg.BatchSize,
			Parallelism: w.cfg.Parallelism,
		}
		if err := w.fetchSegment(ctx, seg); err != nil {
			return err
		}

		cp.NextIndex = seg.End
		if err := w.persist(ctx, cp); err != nil {
			return err
		}
		w.metrics.nextIndex.Set(float64(cp.NextIndex), id)
		w.logProgress(cp.NextIndex-firstIndex, observed.TreeSize-cp.NextIndex, runStart)
	}

	w.setState(CaughtUp)
	glog.Infof("log %s caught up at %s entries", id, humanize.Comma(int64(cp.NextIndex)))
	return nil
}

// loadCheckpoint loads and checks the checkpoint against the storage. There may be up to
// Stride extra entries in storage, left by a segment that was fetched, possibly completely,
// but not checkpointed. The next segment requests and overwrites the same range.
func (w *Wrangler) loadCheckpoint(ctx context.Context) (*checkpoint.Checkpoint, error) {
	id := w.cfg.LogID
	cp, err := w.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint of log %s: %w", id, err)
	}
	if err := cp.Validate(); err != nil {
		return nil, &IntegrityError{LogID: id, Reason: "corrupt checkpoint", Err: err}
	}
	count, err := w.counter.Count(w.cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("counting entries of log %s: %w", id, err)
	}
	if count < cp.NextIndex || count-cp.NextIndex > w.cfg.Stride {
		return nil, &IntegrityError{
			LogID: id,
			Reason: fmt.Sprintf("%d entries in %s, expected between %d and %d",
				count, w.cfg.StoragePath, cp.NextIndex, util.AddSaturating(cp.NextIndex, w.cfg.Stride)),
		}
	}
	return cp, nil
}

func sameTreeHead(a, b *sth.STH) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.TreeSize == b.TreeSize &&
		a.Timestamp == b.Timestamp &&
		bytes.Equal(a.RootHash, b.RootHash)
}

// persist stores the checkpoint even if ctx is cancelled, so that verified progress is kept.
func (w *Wrangler) persist(ctx context.Context, cp *checkpoint.Checkpoint) error {
	return w.store.Store(context.WithoutCancel(ctx), w.cfg.LogID, cp)
}

func (w *Wrangler) fetchSegment(ctx context.Context, seg fetchtool.Segment) error {
	id := w.cfg.LogID
	w.setState(Fetching)
	start := w.clock.Now()
	glog.V(1).Infof("log %s: fetching segment [%d, %d)", id, seg.Start, seg.End)
	if err := w.tool.Fetch(ctx, seg); err != nil {
		return fmt.Errorf("%w: log %s: %w", ErrFetchFailure, id, err)
	}

	w.setState(Verifying)
	count, err := w.counter.Count(seg.OutputDir)
	if err != nil {
		return fmt.Errorf("counting entries of log %s: %w", id, err)
	}
	if count != seg.End {
		return &IntegrityError{
			LogID: id,
			Reason: fmt.Sprintf("after fetching [%d, %d) found %d entries in %s",
				seg.Start, seg.End, count, seg.OutputDir),
		}
	}

	elapsed := w.clock.Now().Sub(start)
	w.metrics.segmentSeconds.Observe(elapsed.Seconds(), id)
	w.metrics.entrySeconds.Set(elapsed.Seconds()/float64(seg.Len()), id)
	w.metrics.entriesFetched.Add(float64(seg.Len()), id)
	w.metrics.segmentsFetched.Inc(id)
	return nil
}

func (w *Wrangler) logProgress(done, remaining uint64, since time.Time) {
	elapsed := w.clock.Now().Sub(since)
	eta := "unknown"
	if done > 0 && elapsed > 0 {
		perEntry := elapsed / time.Duration(done)
		eta = (perEntry * time.Duration(remaining)).Round(time.Second).String()
	}
	glog.Infof("log %s: %s entries fetched in %s, %s remaining, ETA %s",
		w.cfg.LogID, humanize.Comma(int64(done)), elapsed.Round(time.Millisecond),
		humanize.Comma(int64(remaining)), eta)
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
