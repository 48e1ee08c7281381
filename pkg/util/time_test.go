package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeFromMillis(t *testing.T) {
	ts := time.Date(2022, 12, 6, 5, 0, 0, 0, time.UTC)
	ms := MillisFromTime(ts)
	require.Equal(t, uint64(1670302800000), ms)
	require.Equal(t, ts, TimeFromMillis(ms))
}
