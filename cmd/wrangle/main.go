package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/golang/glog"
	tprometheus "github.com/google/trillian/monitoring/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/netsec-ethz/ctwrangler/pkg/checkpoint"
	"github.com/netsec-ethz/ctwrangler/pkg/db/mysql"
	"github.com/netsec-ethz/ctwrangler/pkg/fetchtool"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
	"github.com/netsec-ethz/ctwrangler/pkg/wrangler"
)

const waitForExitBeforePanicTime = 30 * time.Second

func main() {
	util.RegisterShutdownFunc(func() error {
		glog.Flush()
		return nil
	})
	util.Exit(mainFunc())
}

func mainFunc() int {
	flag.Set("logtostderr", "true")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n%s [flags] configuration_file\n", os.Args[0])
		flag.PrintDefaults()
	}
	logID := flag.String("log_id", "", "Overrides LogID of the configuration")
	logURL := flag.String("log_url", "", "Overrides LogURL of the configuration")
	storage := flag.String("storage", "", "Overrides StoragePath of the configuration")
	pushGateway := flag.String("pushgateway", "", "Overrides PushGateway of the configuration")
	createSampleConfig := flag.Bool("createSampleConfig", false,
		"Create configuration file specified by positional argument")
	flag.Parse()

	// We need the configuration file as the first positional argument.
	if flag.NArg() != 1 {
		flag.Usage()
		return wrangler.ExitInvalidInvocation
	}

	if *createSampleConfig {
		return manageError(WriteConfigurationToFile(flag.Arg(0), SampleConfig()))
	}

	config, err := ReadConfigFromFile(flag.Arg(0))
	if err != nil {
		return manageError(err)
	}
	overrideString(&config.LogID, *logID)
	overrideString(&config.LogURL, *logURL)
	overrideString(&config.StoragePath, *storage)
	overrideString(&config.PushGateway, *pushGateway)

	return manageError(run(config))
}

func overrideString(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func run(config *Config) error {
	ctx := context.Background()

	// Set SIGTERM handler. The context we get is cancelled if one of those signals is caught.
	ctx = util.ContextWithCancelOnSignal(ctx, waitForExitBeforePanicTime,
		syscall.SIGTERM, syscall.SIGINT)

	if err := config.Validate(); err != nil {
		return err
	}

	// Only one wrangler per log.
	if config.StoragePath == "" {
		return fmt.Errorf("%w: empty storage path", wrangler.ErrInvalidInvocation)
	}
	unlock, err := checkpoint.Lock(config.StoragePath + ".lock")
	if err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return fmt.Errorf("%w: %v", wrangler.ErrInvalidInvocation, err)
		}
		return err
	}
	defer unlock()

	store, closeStore, err := newStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	querier := sth.NewCTQuerier(sth.Options{
		MaxAttempts:    config.STHAttempts,
		AttemptTimeout: config.STHTimeout.Duration,
		MaxBackoff:     config.STHMaxBackoff.Duration,
	})
	tool := &fetchtool.Exec{
		Path:      config.FetchTool,
		Args:      config.FetchToolArgs,
		Timeout:   config.SegmentTimeout.Duration,
		Heartbeat: time.Minute,
	}
	metrics := wrangler.NewMetrics(tprometheus.MetricFactory{Prefix: "ctwrangler_"})

	w, err := wrangler.New(config.WranglerConfig(), store, querier, tool,
		wrangler.WithMetrics(metrics))
	if err != nil {
		return err
	}
	state, err := w.Run(ctx)
	glog.Infof("log %s finished in state %s", config.LogID, state)

	if config.PushGateway != "" {
		pushErr := push.New(config.PushGateway, "ctwrangler").
			Gatherer(prometheus.DefaultGatherer).
			Grouping("log", config.LogID).
			Push()
		if pushErr != nil {
			glog.Warningf("cannot push metrics to %s: %v", config.PushGateway, pushErr)
		}
	}
	return err
}

func newStore(config *Config) (checkpoint.Store, func() error, error) {
	if config.DBConfig == nil {
		s, err := checkpoint.NewFileStore(config.CheckpointDir)
		return s, func() error { return nil }, err
	}
	conn, err := mysql.Connect(config.DBConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.CreateSchema(context.Background()); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return checkpoint.NewSQLStore(conn), conn.Close, nil
}

func manageError(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return wrangler.ExitCode(err)
}
