package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestJSONLAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.jsonl")
	rec := NewJSONL(path)
	if rec == nil {
		t.Fatalf("expected recorder for non-blank path")
	}

	want := []Record{
		{TsMs: 1000, RoundID: 7, ChosenTiles: []int{1, 5}, RoundProfit: 0.02, CumulativeProfit: 0.02},
		{TsMs: 2000, RoundID: 8, ChosenTiles: nil, RoundProfit: 0, CumulativeProfit: 0.02},
	}
	for _, r := range want {
		if err := rec.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer f.Close()

	var got []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad ledger line %q: %v", sc.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].RoundID != want[i].RoundID || got[i].CumulativeProfit != want[i].CumulativeProfit {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestNewJSONLBlankPathDisabled(t *testing.T) {
	rec := NewJSONL("  ")
	if rec != nil {
		t.Fatalf("expected nil recorder for blank path")
	}
	// nil receiver must still be usable
	if err := rec.Append(Record{RoundID: 1}); err != nil {
		t.Fatalf("nil append: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestSQLiteAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	rec, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	for i := 1; i <= 3; i++ {
		err := rec.Append(Record{
			TsMs:             int64(i * 1000),
			RoundID:          uint64(i),
			ChosenTiles:      []int{i, i + 1},
			RoundProfit:      0.01,
			CumulativeProfit: 0.01 * float64(i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := rec.db.Query("SELECT round_id, chosen_tiles, cumulative_profit FROM rounds ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
		var roundID uint64
		var tilesJSON string
		var cumulative float64
		if err := rows.Scan(&roundID, &tilesJSON, &cumulative); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if roundID != uint64(n) {
			t.Fatalf("round_id = %d, want %d", roundID, n)
		}
		var tiles []int
		if err := json.Unmarshal([]byte(tilesJSON), &tiles); err != nil {
			t.Fatalf("tiles column is not JSON: %v", err)
		}
		if !reflect.DeepEqual(tiles, []int{n, n + 1}) {
			t.Fatalf("tiles = %v, want %v", tiles, []int{n, n + 1})
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d rows, want 3", n)
	}
}

type failingRecorder struct{ appends int }

func (f *failingRecorder) Append(Record) error { f.appends++; return fmt.Errorf("disk full") }
func (f *failingRecorder) Close() error        { return nil }

type countingRecorder struct{ appends int }

func (c *countingRecorder) Append(Record) error { c.appends++; return nil }
func (c *countingRecorder) Close() error        { return nil }

func TestMultiKeepsGoingPastFailures(t *testing.T) {
	bad := &failingRecorder{}
	good := &countingRecorder{}
	m := Multi{bad, good}

	err := m.Append(Record{RoundID: 1})
	if err == nil {
		t.Fatalf("expected first error to surface")
	}
	if good.appends != 1 {
		t.Fatalf("second recorder got %d appends, want 1", good.appends)
	}
}
