package loglist

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/certificate-transparency-go/loglist3"
)

// DefaultCatalogURL is the list of all logs published by Google.
const DefaultCatalogURL = "https://www.gstatic.com/ct/log_list/v3/all_logs_list.json"

const maxCatalogSize = 16 << 20

// ReadCatalog loads a v3 log list from a URL (http or https) or from a local file.
func ReadCatalog(ctx context.Context, source string) ([]LogDescriptor, error) {
	var data []byte
	var err error
	if strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "http://") {
		data, err = download(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read log list %s: %w", source, err)
	}
	return ParseCatalog(data)
}

func download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
}

// ParseCatalog parses a v3 log list and flattens the logs of all operators, in order.
// Logs without a URL are skipped.
func ParseCatalog(data []byte) ([]LogDescriptor, error) {
	ll, err := loglist3.NewFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse log list: %w", err)
	}
	var logs []LogDescriptor
	for _, op := range ll.Operators {
		for _, l := range op.Logs {
			if l.URL == "" {
				glog.Warningf("skipping log %q without URL", l.Description)
				continue
			}
			logs = append(logs, fromLoglist3(op.Name, l))
		}
	}
	return logs, nil
}

func fromLoglist3(operator string, l *loglist3.Log) LogDescriptor {
	d := LogDescriptor{
		ID:          base64.StdEncoding.EncodeToString(l.LogID),
		Description: l.Description,
		Operator:    operator,
		URL:         l.URL,
		Lifecycle:   Active,
	}
	if l.TemporalInterval != nil {
		d.TemporalInterval = &Interval{
			Start: l.TemporalInterval.StartInclusive,
			End:   l.TemporalInterval.EndExclusive,
		}
	}
	if s := l.State; s != nil {
		// The most terminal state wins.
		switch {
		case s.Retired != nil:
			d.Lifecycle, d.Since = Retired, s.Retired.Timestamp
		case s.Rejected != nil:
			d.Lifecycle, d.Since = Retired, s.Rejected.Timestamp
		case s.ReadOnly != nil:
			d.Lifecycle, d.Since = ReadOnly, s.ReadOnly.Timestamp
		}
	}
	return d
}
