package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/netsec-ethz/ctwrangler/pkg/db"
	"github.com/netsec-ethz/ctwrangler/pkg/fetchtool"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
	"github.com/netsec-ethz/ctwrangler/pkg/wrangler"
)

type Config struct {
	LogID       string
	LogURL      string
	StoragePath string // Entries are stored here, one file each.

	// Checkpoints are stored in CheckpointDir, unless DBConfig is set.
	CheckpointDir string
	DBConfig      *db.Configuration `json:",omitempty"`

	Stride      uint64
	BatchSize   uint
	Parallelism uint

	FetchTool      string   // Path to the binary fetching entries.
	FetchToolArgs  []string // Argument template, see fetchtool.DefaultArgs.
	SegmentTimeout util.DurationWrap

	STHAttempts   int
	STHTimeout    util.DurationWrap
	STHMaxBackoff util.DurationWrap

	PushGateway string `json:",omitempty"` // Prometheus pushgateway URL.
}

func SampleConfig() *Config {
	return &Config{
		LogID:          "6D7Q2j71BjUy51covIlryQPTy9ERa+zraeF3fW0GvW4=",
		LogURL:         "https://ct.googleapis.com/logs/argon2023/",
		StoragePath:    "/var/lib/ctwrangler/entries/argon2023",
		CheckpointDir:  "/var/lib/ctwrangler/checkpoints",
		Stride:         wrangler.DefaultStride,
		BatchSize:      wrangler.DefaultBatchSize,
		Parallelism:    wrangler.DefaultParallelism,
		FetchTool:      "/usr/local/bin/ct-fetch",
		FetchToolArgs:  fetchtool.DefaultArgs,
		SegmentTimeout: util.DurationWrap{Duration: 2 * time.Hour},
		STHAttempts:    5,
		STHTimeout:     util.DurationWrap{Duration: 30 * time.Second},
		STHMaxBackoff:  util.DurationWrap{Duration: 30 * time.Second},
	}
}

// Validate checks the values that the wrangler package does not check itself.
func (c *Config) Validate() error {
	if c.DBConfig == nil && c.CheckpointDir == "" {
		return fmt.Errorf("%w: either CheckpointDir or DBConfig must be set",
			wrangler.ErrInvalidInvocation)
	}
	if c.FetchTool == "" {
		return fmt.Errorf("%w: no FetchTool", wrangler.ErrInvalidInvocation)
	}
	if c.CheckpointDir != "" && c.StoragePath != "" &&
		filepath.Clean(c.CheckpointDir) == filepath.Clean(c.StoragePath) {

		return fmt.Errorf("%w: CheckpointDir and StoragePath must differ",
			wrangler.ErrInvalidInvocation)
	}
	return nil
}

func (c *Config) WranglerConfig() wrangler.Config {
	return wrangler.Config{
		LogID:       c.LogID,
		LogURL:      c.LogURL,
		StoragePath: c.StoragePath,
		Stride:      c.Stride,
		BatchSize:   c.BatchSize,
		Parallelism: c.Parallelism,
	}
}

func ReadConfigFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading configuration: %w", wrangler.ErrInvalidInvocation, err)
	}

	// JSON to Config.
	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", wrangler.ErrInvalidInvocation, filePath, err)
	}
	return c, nil
}

func WriteConfigurationToFile(filePath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
