package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/cacheprobe/internal/metrics"
)

const (
	lockFileName    = ".cacheprobe.lock"
	timestampLayout = "20060102_150405"
	lockRetryDelay  = 50 * time.Millisecond
	lockTimeout     = 10 * time.Second
)

var csvHeader = []string{
	"scenario", "query", "cache_status", "latency_ms", "tokens", "cost_usd", "timestamp",
	"query_length", "response_length", "thread_id", "error", "error_kind", "throttle_retries",
}

// RunSummary is the JSON summary document.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	metrics.Summary
}

// Paths lists the files an export produced.
type Paths struct {
	CSV  string
	JSON string
}

// NewRunID returns a time-ordered run identifier.
func NewRunID(t time.Time) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy())
}

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, records []metrics.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Scenario,
			r.Query,
			string(r.Tier),
			strconv.FormatFloat(r.LatencyMs, 'f', -1, 64),
			strconv.Itoa(r.Tokens),
			strconv.FormatFloat(r.CostUSD, 'f', -1, 64),
			r.Timestamp.Format(time.RFC3339Nano),
			strconv.Itoa(r.QueryLength),
			strconv.Itoa(r.ResponseLength),
			r.WorkerID,
			r.Error,
			r.ErrorKind,
			strconv.Itoa(r.ThrottleRetries),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONSummary writes the summary as indented JSON.
func WriteJSONSummary(w io.Writer, s RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Export writes cacheprobe_<ts>.csv and cacheprobe_summary_<ts>.json into dir,
// where ts is the run start. Concurrent exports into the same directory are
// serialized through a lock file.
func Export(ctx context.Context, dir string, summary RunSummary, records []metrics.Record) (Paths, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create export dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return Paths{}, fmt.Errorf("lock export dir: %w", err)
	}
	if !locked {
		return Paths{}, fmt.Errorf("lock export dir: %s is held by another run", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	ts := summary.StartedAt.Format(timestampLayout)
	paths := Paths{
		CSV:  filepath.Join(dir, "cacheprobe_"+ts+".csv"),
		JSON: filepath.Join(dir, "cacheprobe_summary_"+ts+".json"),
	}

	if err := writeFile(paths.CSV, func(w io.Writer) error { return WriteCSV(w, records) }); err != nil {
		return Paths{}, fmt.Errorf("write csv: %w", err)
	}
	if err := writeFile(paths.JSON, func(w io.Writer) error { return WriteJSONSummary(w, summary) }); err != nil {
		return Paths{}, fmt.Errorf("write summary: %w", err)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
