// Package loglist reads catalogs of CT logs and decides which logs are worth mirroring.
package loglist

import (
	"fmt"
	"time"
)

type Lifecycle int

const (
	Active Lifecycle = iota
	ReadOnly
	Retired
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case ReadOnly:
		return "readonly"
	case Retired:
		return "retired"
	default:
		return fmt.Sprintf("Lifecycle(%d)", int(l))
	}
}

// Interval is the range [Start, End) of certificate expiry dates a log accepts.
type Interval struct {
	Start time.Time
	End   time.Time
}

// LogDescriptor describes one CT log of a catalog.
type LogDescriptor struct {
	ID          string // Base64 of the log ID.
	Description string
	Operator    string
	URL         string
	Lifecycle   Lifecycle
	// Since is the time of the last lifecycle transition. It is only meaningful for ReadOnly
	// and Retired logs.
	Since            time.Time
	TemporalInterval *Interval
}

func (d LogDescriptor) String() string {
	return fmt.Sprintf("%q (%s, %s)", d.Description, d.URL, d.Lifecycle)
}
