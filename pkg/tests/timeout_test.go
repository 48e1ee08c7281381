package tests_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netsec-ethz/ctwrangler/pkg/tests"
)

// TestTestOrTimeout checks that, even with "-race" enabled, the TestOrTimeout function works.
func TestTestOrTimeout(t *testing.T) {
	tests.TestOrTimeout(t, tests.WithTimeout(time.Second), func(t tests.T) {
		require.True(t, true)
	})
}

func TestWithContext(t *testing.T) {
	require.Equal(t, time.Duration(-1), tests.WithContext(context.Background())())

	ctx, cancelF := context.WithTimeout(context.Background(), time.Hour)
	defer cancelF()
	timeout := tests.WithContext(ctx)()
	require.Greater(t, timeout, 59*time.Minute)
	require.LessOrEqual(t, timeout, time.Hour)
}

func TestSkipUnless(t *testing.T) {
	t.Run("skipped", func(t *testing.T) {
		t.Setenv("CTWRANGLER_SKIP_TEST", "")
		os.Unsetenv("CTWRANGLER_SKIP_TEST")
		tests.SkipUnless(t, "CTWRANGLER_SKIP_TEST")
		t.Fatal("not skipped")
	})
	t.Run("defined", func(t *testing.T) {
		t.Setenv("CTWRANGLER_SKIP_TEST", "1")
		tests.SkipUnless(t, "CTWRANGLER_SKIP_TEST")
	})
}
