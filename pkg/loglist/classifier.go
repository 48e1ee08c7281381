package loglist

import (
	"time"

	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

// DefaultMaxLifetime is the longest validity of a publicly trusted certificate issued before
// September 2020.
const DefaultMaxLifetime = 825 * util.Day

// LifetimePolicy returns the maximum certificate lifetime assumed at a given time.
type LifetimePolicy interface {
	MaxLifetime(now time.Time) time.Duration
}

// FixedLifetime is a constant maximum lifetime.
type FixedLifetime time.Duration

func (f FixedLifetime) MaxLifetime(time.Time) time.Duration {
	return time.Duration(f)
}

// SteppedLifetime uses Before until SwitchAt, and After once now is past SwitchAt.
type SteppedLifetime struct {
	Before   time.Duration
	After    time.Duration
	SwitchAt time.Time
}

// DefaultSteppedLifetime moves from 825 to 398 days on 2022-12-06, 825 days after the
// 398 day limit took effect.
var DefaultSteppedLifetime = SteppedLifetime{
	Before:   825 * util.Day,
	After:    398 * util.Day,
	SwitchAt: time.Unix(1670302800, 0).UTC(),
}

func (s SteppedLifetime) MaxLifetime(now time.Time) time.Duration {
	if now.After(s.SwitchAt) {
		return s.After
	}
	return s.Before
}

// Classifier decides which logs can still contain unexpired certificates.
type Classifier struct {
	Policy LifetimePolicy
}

// NewClassifier returns a Classifier using policy, or the default fixed lifetime if nil.
func NewClassifier(policy LifetimePolicy) *Classifier {
	if policy == nil {
		policy = FixedLifetime(DefaultMaxLifetime)
	}
	return &Classifier{Policy: policy}
}

// Classify returns the current logs of catalog, in the same order.
func (c *Classifier) Classify(catalog []LogDescriptor, now time.Time) []LogDescriptor {
	current := make([]LogDescriptor, 0, len(catalog))
	for _, l := range catalog {
		if c.IsCurrent(l, now) {
			current = append(current, l)
		}
	}
	return current
}

// IsCurrent returns true unless the log's temporal interval has ended or the log stopped
// accepting entries longer than the maximum certificate lifetime ago.
func (c *Classifier) IsCurrent(l LogDescriptor, now time.Time) bool {
	if l.TemporalInterval != nil && !l.TemporalInterval.End.After(now) {
		return false
	}
	switch l.Lifecycle {
	case ReadOnly, Retired:
		return l.Since.Add(c.Policy.MaxLifetime(now)).After(now)
	}
	return true
}

// Classify uses the default policy.
func Classify(catalog []LogDescriptor, now time.Time) []LogDescriptor {
	return NewClassifier(nil).Classify(catalog, now)
}
