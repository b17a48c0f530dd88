package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"recsync/internal/config"
)

// FileName is the journal database file inside the configured data_dir.
const FileName = "recsync.db"

// NewJournalFromConfig opens the journal described by cfg. A memory journal
// is migrated on open since it starts empty every time.
func NewJournalFromConfig(cfg config.JournalConfig) (*SQLiteJournal, error) {
	switch cfg.Type {
	case config.JournalTypeSQLite:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, FileName))
	case config.JournalTypeMemory:
		j, err := NewSQLiteJournal(":memory:")
		if err != nil {
			return nil, err
		}
		if err := j.MigrateUp(); err != nil {
			j.Close()
			return nil, err
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
