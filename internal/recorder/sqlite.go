// Package recorder persists closed trades and daily summaries to SQLite so
// the dashboard can chart history across restarts.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"optionscout/internal/ledger"
	"optionscout/internal/report"
)

// Store is a SQLite-backed history recorder. It satisfies ledger.CloseRecorder.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (or creates) the database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads don't block ledger writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id              TEXT PRIMARY KEY,
			idea_id         TEXT,
			symbol          TEXT NOT NULL,
			contract        TEXT NOT NULL,
			direction       INTEGER NOT NULL,
			contracts       INTEGER NOT NULL,
			entry_price     REAL NOT NULL,
			exit_price      REAL NOT NULL,
			exit_reason     TEXT NOT NULL,
			realized_pnl    REAL NOT NULL,
			opened_at       INTEGER NOT NULL,
			closed_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_closed_at ON closed_trades(closed_at)`,

		`CREATE TABLE IF NOT EXISTS daily_summaries (
			day              TEXT PRIMARY KEY,
			day_realized     REAL NOT NULL,
			total_realized   REAL NOT NULL,
			total_unrealized REAL NOT NULL,
			open_count       INTEGER NOT NULL,
			wins             INTEGER NOT NULL,
			losses           INTEGER NOT NULL,
			win_rate         REAL NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// RecordClose persists a closed position. Errors are swallowed to keep the
// ledger's close path infallible; use SaveClose for an error-returning write.
func (s *Store) RecordClose(p ledger.Position) {
	_ = s.SaveClose(p)
}

// SaveClose inserts (or replaces) a closed position row.
func (s *Store) SaveClose(p ledger.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO closed_trades
		 (id, idea_id, symbol, contract, direction, contracts, entry_price, exit_price, exit_reason, realized_pnl, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.IdeaID, p.Symbol, p.Contract.Describe(), int(p.Direction), p.Contracts,
		p.EntryFillPrice, p.ExitFillPrice, string(p.ExitReason), p.RealizedPnL,
		p.OpenedAt.Unix(), p.ClosedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// SaveDailySummary upserts the end-of-day aggregate row.
func (s *Store) SaveDailySummary(sum report.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO daily_summaries
		 (day, day_realized, total_realized, total_unrealized, open_count, wins, losses, win_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.Date.Format("2006-01-02"), sum.DayRealized, sum.TotalRealized, sum.TotalUnrealized,
		sum.OpenCount, sum.Wins, sum.Losses, sum.WinRate,
	)
	if err != nil {
		return fmt.Errorf("insert daily summary: %w", err)
	}
	return nil
}

// ClosedTradeCount reports how many closed trades are on record.
func (s *Store) ClosedTradeCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM closed_trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count closed trades: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
