package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/netsec-ethz/ctwrangler/pkg/loglist"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

const waitForExitBeforePanicTime = 10 * time.Second

func main() {
	util.RegisterShutdownFunc(func() error {
		glog.Flush()
		return nil
	})
	util.Exit(mainFunc())
}

type options struct {
	source      string
	now         time.Time
	policy      loglist.LifetimePolicy
	sizes       bool
	parallelism int
	asJSON      bool
}

func mainFunc() int {
	flag.Set("logtostderr", "true")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n%s [flags]\n"+
			"Prints the CT logs of the list that may still contain unexpired certificates.\n",
			os.Args[0])
		flag.PrintDefaults()
	}
	source := flag.String("list", loglist.DefaultCatalogURL, "Log list file or URL (v3 schema)")
	nowFlag := flag.String("now", "", "Classify at this RFC3339 time instead of the current one")
	maxLifetime := util.DurationWrap{Duration: loglist.DefaultMaxLifetime}
	flag.Var(&maxLifetime, "max_lifetime", "Maximum certificate lifetime, e.g. 825d")
	stepped := flag.Bool("stepped", false,
		"Use 825 days until 2022-12-06 and 398 days after, instead of -max_lifetime")
	sizes := flag.Bool("sizes", false, "Query the tree size of every current log")
	parallelism := flag.Int("parallelism", 8, "Concurrent tree size queries")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	flag.Parse()

	if flag.NArg() != 0 {
		flag.Usage()
		return 2
	}

	opts := options{
		source:      *source,
		now:         time.Now(),
		policy:      loglist.FixedLifetime(maxLifetime.Duration),
		sizes:       *sizes,
		parallelism: *parallelism,
		asJSON:      *asJSON,
	}
	if *stepped {
		opts.policy = loglist.DefaultSteppedLifetime
	}
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad -now: %v\n", err)
			return 2
		}
		opts.now = t
	}

	ctx := util.ContextWithCancelOnSignal(context.Background(), waitForExitBeforePanicTime,
		syscall.SIGTERM, syscall.SIGINT)
	return manageError(run(ctx, os.Stdout, opts, sth.NewCTQuerier(sth.DefaultOptions())))
}

type result struct {
	ID          string
	Description string
	Operator    string
	URL         string
	Lifecycle   string
	TreeSize    *uint64 `json:",omitempty"`
	Error       string  `json:",omitempty"`
}

func run(ctx context.Context, w io.Writer, opts options, q sth.Querier) error {
	catalog, err := loglist.ReadCatalog(ctx, opts.source)
	if err != nil {
		return err
	}
	current := loglist.NewClassifier(opts.policy).Classify(catalog, opts.now)
	glog.Infof("%d of %d logs are current at %s", len(current), len(catalog),
		opts.now.Format(time.RFC3339))

	var report *loglist.SizeReport
	if opts.sizes {
		report = loglist.QuerySizes(ctx, q, current, opts.parallelism)
	}

	results := make([]result, len(current))
	for i, l := range current {
		results[i] = result{
			ID:          l.ID,
			Description: l.Description,
			Operator:    l.Operator,
			URL:         l.URL,
			Lifecycle:   l.Lifecycle.String(),
		}
		if report == nil {
			continue
		}
		if size, ok := report.Sizes[l.ID]; ok {
			size := size
			results[i].TreeSize = &size
		} else if err, ok := report.Failures[l.ID]; ok {
			results[i].Error = err.Error()
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s", r.ID, r.Lifecycle, r.URL, r.Description)
		switch {
		case r.TreeSize != nil:
			fmt.Fprintf(w, "\t%s", humanize.Comma(int64(*r.TreeSize)))
		case r.Error != "":
			fmt.Fprintf(w, "\terror: %s", r.Error)
		}
		fmt.Fprintln(w)
	}
	if report != nil {
		fmt.Fprintf(w, "total entries: %s (%d logs failed)\n",
			humanize.Comma(int64(report.Total)), len(report.Failures))
	}
	return nil
}

func manageError(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
