package sth

import (
	"context"
	"fmt"
	"time"

	ct "github.com/google/certificate-transparency-go"

	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

// STH is the part of a signed tree head that the wrangler records. The signature is not kept,
// as it is not verified here.
type STH struct {
	TreeSize  uint64 `json:"tree_size"`
	Timestamp uint64 `json:"timestamp"` // Milliseconds since the Unix epoch.
	RootHash  []byte `json:"sha256_root_hash"`
}

// Querier obtains the current tree head of a CT log.
type Querier interface {
	GetSTH(ctx context.Context, logURL string) (*STH, error)
}

// FromSignedTreeHead converts the certificate-transparency-go representation.
func FromSignedTreeHead(s *ct.SignedTreeHead) *STH {
	root := make([]byte, len(s.SHA256RootHash))
	copy(root, s.SHA256RootHash[:])
	return &STH{
		TreeSize:  s.TreeSize,
		Timestamp: s.Timestamp,
		RootHash:  root,
	}
}

func (s *STH) Time() time.Time {
	return util.TimeFromMillis(s.Timestamp)
}

func (s *STH) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("size=%d ts=%s root=%x", s.TreeSize, s.Time().Format(time.RFC3339), s.RootHash)
}
