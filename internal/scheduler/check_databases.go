package scheduler

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/database"
)

// CheckDatabasesJob verifies integrity of the SQLite databases
type CheckDatabasesJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewCheckDatabasesJob creates a new CheckDatabasesJob
func NewCheckDatabasesJob(log zerolog.Logger, databases ...*database.DB) *CheckDatabasesJob {
	return &CheckDatabasesJob{
		log:       log.With().Str("job", "check_databases").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes the integrity check
func (j *CheckDatabasesJob) Run() error {
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		if err := checkDatabaseIntegrity(db.Conn()); err != nil {
			j.log.Error().
				Err(err).
				Str("database", db.Name()).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", db.Name(), err)
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database integrity OK")
	}

	j.log.Info().Msg("Database integrity check passed")
	return nil
}

// checkDatabaseIntegrity runs SQLite's PRAGMA integrity_check
func checkDatabaseIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}
