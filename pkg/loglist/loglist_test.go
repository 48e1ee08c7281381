package loglist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/netsec-ethz/ctwrangler/pkg/sth"
	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseCatalog(t *testing.T) {
	logs, err := ReadCatalog(context.Background(), "testdata/log_list.json")
	require.NoError(t, err)
	require.Len(t, logs, 5)

	require.Equal(t, LogDescriptor{
		ID:          "6D7Q2j71BjUy51covIlryQPTy9ERa+zraeF3fW0GvW4=",
		Description: "Google 'Argon2023' log",
		Operator:    "Google",
		URL:         "https://ct.googleapis.com/logs/argon2023/",
		Lifecycle:   Active,
		TemporalInterval: &Interval{
			Start: date(2023, 1, 1),
			End:   date(2024, 1, 1),
		},
	}, logs[0])

	expected := []struct {
		lifecycle Lifecycle
		since     time.Time
	}{
		{Active, time.Time{}},
		{Retired, date(2021, 2, 2)},
		{ReadOnly, date(2022, 6, 1)},
		{Retired, date(2022, 3, 1)},
		{Active, time.Time{}},
	}
	for i, e := range expected {
		require.Equal(t, e.lifecycle, logs[i].Lifecycle, logs[i].Description)
		require.True(t, e.since.Equal(logs[i].Since), logs[i].Description)
	}
	require.Equal(t, "Example", logs[2].Operator)
	require.Equal(t, "AQIDBA==", logs[2].ID)
}

func TestReadCatalogURL(t *testing.T) {
	data, err := os.ReadFile("testdata/log_list.json")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	logs, err := ReadCatalog(context.Background(), srv.URL+"/all_logs_list.json")
	require.NoError(t, err)
	require.Len(t, logs, 5)

	_, err = ReadCatalog(context.Background(), "testdata/missing.json")
	require.Error(t, err)
	_, err = ParseCatalog([]byte("{"))
	require.Error(t, err)
}

func TestClassifyBoundary(t *testing.T) {
	now := date(2024, 6, 1)
	retiredDaysAgo := func(days int) LogDescriptor {
		return LogDescriptor{
			ID:        fmt.Sprintf("retired-%d", days),
			Lifecycle: Retired,
			Since:     now.Add(-time.Duration(days) * util.Day),
		}
	}
	cases := map[string]struct {
		log      LogDescriptor
		expected bool
	}{
		"active": {
			log:      LogDescriptor{Lifecycle: Active},
			expected: true,
		},
		"retired_824_days": {
			log:      retiredDaysAgo(824),
			expected: true,
		},
		"retired_825_days": {
			log:      retiredDaysAgo(825),
			expected: false,
		},
		"retired_826_days": {
			log:      retiredDaysAgo(826),
			expected: false,
		},
		"readonly_recent": {
			log:      LogDescriptor{Lifecycle: ReadOnly, Since: now.Add(-util.Day)},
			expected: true,
		},
		"readonly_825_days": {
			log:      LogDescriptor{Lifecycle: ReadOnly, Since: now.Add(-825 * util.Day)},
			expected: false,
		},
		"interval_ended_now": {
			log: LogDescriptor{
				Lifecycle:        Active,
				TemporalInterval: &Interval{Start: date(2023, 1, 1), End: now},
			},
			expected: false,
		},
		"interval_ends_later": {
			log: LogDescriptor{
				Lifecycle:        Active,
				TemporalInterval: &Interval{Start: date(2024, 1, 1), End: now.Add(time.Second)},
			},
			expected: true,
		},
		"recently_retired_but_interval_ended": {
			log: LogDescriptor{
				Lifecycle:        Retired,
				Since:            now.Add(-util.Day),
				TemporalInterval: &Interval{End: now.Add(-time.Hour)},
			},
			expected: false,
		},
	}
	for name, tc := range cases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Classify([]LogDescriptor{tc.log}, now)
			if tc.expected {
				require.Equal(t, []LogDescriptor{tc.log}, got)
			} else {
				require.Empty(t, got)
			}
		})
	}
}

func TestClassifyCatalog(t *testing.T) {
	logs, err := ReadCatalog(context.Background(), "testdata/log_list.json")
	require.NoError(t, err)

	// Argon2023 is current until its interval ends, the frozen log until 825 days after
	// 2022-06-01, the pending log always.
	names := func(logs []LogDescriptor) []string {
		var n []string
		for _, l := range logs {
			n = append(n, l.Description)
		}
		return n
	}
	now := date(2023, 6, 1)
	require.Equal(t, []string{
		"Google 'Argon2023' log",
		"Example frozen log",
		"Example rejected log",
		"Example pending log",
	}, names(Classify(logs, now)))

	// Purity: same input, same output, input untouched.
	require.Equal(t, Classify(logs, now), Classify(logs, now))
	require.Len(t, logs, 5)

	now = date(2024, 1, 1)
	require.Equal(t, []string{
		"Example frozen log",
		"Example rejected log",
		"Example pending log",
	}, names(Classify(logs, now)))

	// With the stepped policy, 398 days apply after 2022-12-06.
	stepped := NewClassifier(DefaultSteppedLifetime)
	require.Equal(t, []string{
		"Google 'Argon2023' log",
		"Example pending log",
	}, names(stepped.Classify(logs, date(2023, 7, 5))))
}

func TestSteppedLifetime(t *testing.T) {
	p := DefaultSteppedLifetime
	require.Equal(t, 825*util.Day, p.MaxLifetime(p.SwitchAt))
	require.Equal(t, 398*util.Day, p.MaxLifetime(p.SwitchAt.Add(time.Second)))
	require.Equal(t, 825*util.Day, FixedLifetime(DefaultMaxLifetime).MaxLifetime(time.Now()))
}

// fakeQuerier returns sizes from a map, and records the maximum concurrency.
type fakeQuerier struct {
	sizes   map[string]uint64
	running atomic.Int32
	maxSeen atomic.Int32
}

func (q *fakeQuerier) GetSTH(ctx context.Context, logURL string) (*sth.STH, error) {
	n := q.running.Inc()
	defer q.running.Dec()
	for {
		m := q.maxSeen.Load()
		if n <= m || q.maxSeen.CAS(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	size, ok := q.sizes[logURL]
	if !ok {
		return nil, fmt.Errorf("connection refused")
	}
	return &sth.STH{TreeSize: size}, nil
}

func TestQuerySizes(t *testing.T) {
	q := &fakeQuerier{
		sizes: map[string]uint64{
			"https://a/": 100,
			"https://b/": 250,
			"https://d/": 1,
		},
	}
	logs := []LogDescriptor{
		{ID: "a", URL: "https://a/"},
		{ID: "b", URL: "https://b/"},
		{ID: "c", URL: "https://c/"},
		{ID: "d", URL: "https://d/"},
	}
	report := QuerySizes(context.Background(), q, logs, 2)
	require.Equal(t, uint64(351), report.Total)
	require.Equal(t, map[string]uint64{"a": 100, "b": 250, "d": 1}, report.Sizes)
	require.Len(t, report.Failures, 1)
	require.Contains(t, report.Failures, "c")
	require.Error(t, report.Err())
	require.LessOrEqual(t, q.maxSeen.Load(), int32(2))

	report = QuerySizes(context.Background(), q, logs[:2], 0)
	require.NoError(t, report.Err())
	require.Equal(t, uint64(350), report.Total)
}
