package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"crimelens/dataset"
	"crimelens/sources"
)

// ErrNoData means every historical extract failed to load: there is no
// baseline to build on and no table is produced.
var ErrNoData = errors.New("no historical data available")

// SourceResult records the outcome of one historical extract fetch.
type SourceResult struct {
	Name string
	Rows int
	Err  error
}

// Report describes one pipeline run: what loaded, what failed, and what
// the live feed contributed.
type Report struct {
	Sources   []SourceResult
	LiveErr   error
	LiveRows  int
	LiveAdded int
	BuiltAt   time.Time
}

// LoadedSources counts the extracts that loaded successfully.
func (r *Report) LoadedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err == nil {
			n++
		}
	}
	return n
}

// Loader runs the full ingest: fetch each extract, fetch the live feed,
// normalize everything, and merge on the watermark. It holds no state
// across runs; each Build is a pure function of its inputs and the network.
type Loader struct {
	bulk     *sources.BulkClient
	live     *sources.LiveClient
	extracts []string
	log      *logrus.Logger
}

func NewLoader(bulk *sources.BulkClient, live *sources.LiveClient, extracts []string, log *logrus.Logger) *Loader {
	return &Loader{bulk: bulk, live: live, extracts: extracts, log: log}
}

// Build produces the canonical table. Individual extract failures are
// recoverable and recorded; only all extracts failing is fatal. A live feed
// failure degrades to the historical baseline with a warning.
func (l *Loader) Build(ctx context.Context) (*dataset.Table, *Report, error) {
	report := &Report{BuiltAt: time.Now().UTC()}

	var historical []*dataset.Table
	for _, name := range l.extracts {
		raw, err := l.bulk.FetchExtract(ctx, name)
		if err != nil {
			l.log.WithError(err).WithField("extract", name).Warn("could not load extract")
			report.Sources = append(report.Sources, SourceResult{Name: name, Err: err})
			continue
		}
		table := dataset.Normalize(raw)
		historical = append(historical, table)
		report.Sources = append(report.Sources, SourceResult{Name: name, Rows: table.Len()})
	}
	if len(historical) == 0 {
		l.log.Error("no extracts could be loaded from the bulk store")
		return nil, report, ErrNoData
	}

	var live *dataset.Table
	raw, err := l.live.FetchLatest(ctx)
	if err != nil {
		l.log.WithError(err).Warn("could not fetch live data")
		report.LiveErr = err
	} else {
		live = dataset.Normalize(raw)
		report.LiveRows = live.Len()
	}

	table, added := dataset.Merge(historical, live)
	report.LiveAdded = added
	if added > 0 {
		l.log.WithField("added", added).Info("appended new records from live feed")
	}
	l.log.WithFields(logrus.Fields{
		"rows":    table.Len(),
		"sources": report.LoadedSources(),
	}).Info("canonical table built")
	return table, report, nil
}
