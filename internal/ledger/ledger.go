package ledger

import (
	"time"

	"github.com/yoshhhhh372-hash/ore-miner/internal/jsonl"
)

// Record is one appended ledger entry, written once per loop iteration and
// never rewritten.
type Record struct {
	TsMs             int64   `json:"ts_ms"`
	RoundID          uint64  `json:"round_id"`
	ChosenTiles      []int   `json:"chosen_tiles"`
	RoundProfit      float64 `json:"round_profit"`
	CumulativeProfit float64 `json:"cumulative_profit"`
}

// Recorder persists the profit history. Append failures are the caller's to
// report; they must never stop mining.
type Recorder interface {
	Append(rec Record) error
	Close() error
}

// Noop is used when no ledger is configured.
type Noop struct{}

func (Noop) Append(Record) error { return nil }
func (Noop) Close() error        { return nil }

// JSONL appends records as newline-delimited JSON.
type JSONL struct {
	w *jsonl.Writer
}

// NewJSONL returns a JSONL recorder appending to path, or nil if path is
// blank.
func NewJSONL(path string) *JSONL {
	w := jsonl.New(path)
	if w == nil {
		return nil
	}
	return &JSONL{w: w}
}

func (l *JSONL) Append(rec Record) error {
	if l == nil {
		return nil
	}
	if rec.TsMs == 0 {
		rec.TsMs = time.Now().UnixMilli()
	}
	return l.w.Write(rec)
}

func (l *JSONL) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}

// Multi fans an append out to several recorders. A failure in one does not
// stop the others; the first error is returned.
type Multi []Recorder

func (m Multi) Append(rec Record) error {
	var firstErr error
	for _, r := range m {
		if err := r.Append(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) Close() error {
	var firstErr error
	for _, r := range m {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
