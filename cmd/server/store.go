package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/database"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

// memoryDatabaseURL selects the in-process store for local runs without
// Postgres. Sessions are lost on restart.
const memoryDatabaseURL = "memory://"

// openSessionStore returns the session store named by databaseURL and a
// function releasing it.
func openSessionStore(ctx context.Context, databaseURL string, autoMigrate bool) (repository.WorkSessionRepository, func() error, error) {
	if databaseURL == memoryDatabaseURL {
		log.Warn().Msg("using in-memory session store: sessions are lost on restart")
		return repository.NewMemoryWorkSessionRepository(), func() error { return nil }, nil
	}

	if autoMigrate {
		if err := database.Migrate(databaseURL, "up"); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info().Msg("migrations applied")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("database connected")

	return repository.NewWorkSessionRepository(db), db.Close, nil
}
