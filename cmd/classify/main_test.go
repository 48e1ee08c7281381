package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netsec-ethz/ctwrangler/pkg/loglist"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
)

type fakeQuerier map[string]uint64

func (q fakeQuerier) GetSTH(ctx context.Context, logURL string) (*sth.STH, error) {
	if size, ok := q[logURL]; ok {
		return &sth.STH{TreeSize: size}, nil
	}
	return nil, fmt.Errorf("unreachable")
}

func TestRun(t *testing.T) {
	opts := options{
		source:      "../../pkg/loglist/testdata/log_list.json",
		now:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		policy:      loglist.FixedLifetime(loglist.DefaultMaxLifetime),
		sizes:       true,
		parallelism: 2,
	}
	q := fakeQuerier{
		"https://ct.example.com/frozen/":  1000,
		"https://ct.example.com/pending/": 234_567,
	}

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, opts, q))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Example frozen log\t1,000")
	require.Contains(t, lines[1], "error: unreachable")
	require.Contains(t, lines[2], "\tactive\t")
	require.Equal(t, "total entries: 235,567 (1 logs failed)", lines[3])

	opts.asJSON = true
	opts.sizes = false
	out.Reset()
	require.NoError(t, run(context.Background(), out, opts, q))
	var results []result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)
	require.Equal(t, "AQIDBA==", results[0].ID)
	require.Equal(t, "readonly", results[0].Lifecycle)
	require.Nil(t, results[0].TreeSize)
}
