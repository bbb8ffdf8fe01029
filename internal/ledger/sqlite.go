package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite persists the profit history to a SQLite database so it survives
// restarts and can be queried offline.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database at dbPath and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers can follow along while the loop writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			round_id          INTEGER NOT NULL,
			chosen_tiles      TEXT NOT NULL,
			round_profit      REAL NOT NULL,
			cumulative_profit REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_ts ON rounds(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_round_id ON rounds(round_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func (r *SQLite) Append(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.TsMs
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	tiles, err := json.Marshal(rec.ChosenTiles)
	if err != nil {
		return fmt.Errorf("marshal tiles: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO rounds
		(timestamp, round_id, chosen_tiles, round_profit, cumulative_profit)
		VALUES (?,?,?,?,?)`,
		ts, rec.RoundID, string(tiles), rec.RoundProfit, rec.CumulativeProfit,
	)
	return err
}

func (r *SQLite) Close() error {
	return r.db.Close()
}
