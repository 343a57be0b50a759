package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/api"
	dbstore "github.com/soaringjerry/hireflow/internal/db"
)

// MigrateIfNeeded imports the legacy JSON snapshot into a new SQLite file.
// It does nothing once the database exists or when there is no snapshot.
func MigrateIfNeeded(ctx context.Context, snapshotPath, sqlitePath, migrationsDir string, log *logrus.Entry) error {
	if sqlitePath == "" {
		return errors.New("sqlite path is required")
	}
	if _, err := os.Stat(sqlitePath); err == nil {
		return nil // already migrated
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}

	snap, err := api.LoadLegacySnapshot(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load legacy snapshot: %w", err)
	}

	log.WithField("snapshot", snapshotPath).Info("first run detected, importing legacy snapshot")

	dst, err := dbstore.Open(sqlitePath, migrationsDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close sqlite db")
		}
	}()

	na, nr, err := api.CopySnapshot(ctx, snap, dst)
	if err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	log.WithFields(logrus.Fields{"assessments": na, "responses": nr}).Info("legacy import completed")
	return nil
}
