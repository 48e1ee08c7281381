package fetchtool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

// Placeholders replaced in the arguments of the external tool.
const (
	PlaceholderLogURL      = "{log_url}"
	PlaceholderOutputDir   = "{output_dir}"
	PlaceholderStart       = "{start}"
	PlaceholderEnd         = "{end}"
	PlaceholderBatchSize   = "{batch_size}"
	PlaceholderParallelism = "{parallelism}"
	PlaceholderFullChain   = "{full_chain}"
)

// DefaultArgs is the argument template used when Exec.Args is empty.
var DefaultArgs = []string{
	"-log_uri=" + PlaceholderLogURL,
	"-output_dir=" + PlaceholderOutputDir,
	"-start=" + PlaceholderStart,
	"-end=" + PlaceholderEnd,
	"-batch_size=" + PlaceholderBatchSize,
	"-parallel_fetch=" + PlaceholderParallelism,
	"-full_chain=" + PlaceholderFullChain,
}

// Exec runs an external binary for each segment. Its standard output and error are forwarded
// to Stdout and Stderr. If nil, both go to the standard error of this process.
type Exec struct {
	Path      string
	Args      []string
	Timeout   time.Duration // If zero, only the context bounds the run.
	// Heartbeat is the interval at which a still running tool is logged. Zero disables it.
	Heartbeat time.Duration
	Stdout    io.Writer
	Stderr    io.Writer
}

var _ Tool = (*Exec)(nil)

func (e *Exec) Fetch(ctx context.Context, seg Segment) error {
	if e.Path == "" {
		return fmt.Errorf("no fetch tool configured")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := ExpandArgs(e.Args, seg)
	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	// Let the tool terminate gracefully before being killed.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 10 * time.Second

	glog.V(1).Infof("running %s %s", e.Path, strings.Join(args, " "))
	start := time.Now()
	if e.Heartbeat > 0 {
		hbCtx, stop := context.WithCancel(ctx)
		defer stop()
		util.NewTickingFunction(hbCtx, e.Heartbeat, func() {
			glog.Infof("fetch tool on %s running for %s", seg, time.Since(start).Round(time.Second))
		})
	}
	err := cmd.Run()
	if ctx.Err() != nil {
		return fmt.Errorf("fetch tool on %s aborted after %s: %w", seg, time.Since(start), ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("fetch tool on %s: %w", seg, err)
	}
	return nil
}

// ExpandArgs replaces the placeholders in template with the values of the segment.
// An empty template means DefaultArgs.
func ExpandArgs(template []string, seg Segment) []string {
	if len(template) == 0 {
		template = DefaultArgs
	}
	r := strings.NewReplacer(
		PlaceholderLogURL, seg.LogURL,
		PlaceholderOutputDir, seg.OutputDir,
		PlaceholderStart, strconv.FormatUint(seg.Start, 10),
		PlaceholderEnd, strconv.FormatUint(seg.End, 10),
		PlaceholderBatchSize, strconv.FormatUint(uint64(seg.BatchSize), 10),
		PlaceholderParallelism, strconv.FormatUint(uint64(seg.Parallelism), 10),
		PlaceholderFullChain, strconv.FormatBool(seg.FullChain),
	)
	args := make([]string, len(template))
	for i, a := range template {
		args[i] = r.Replace(a)
	}
	return args
}
