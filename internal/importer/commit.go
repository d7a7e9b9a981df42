package importer

import (
	"errors"
	"fmt"

	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
)

// EntryCreator is the part of the store the commit step needs
type EntryCreator interface {
	CreateEntry(draft models.EntryDraft) (models.TimeEntry, error)
}

// RowFailure is a valid row the store refused
type RowFailure struct {
	Row int
	Err error
}

// CommitResult reports what a commit did with each row
type CommitResult struct {
	Created []models.TimeEntry
	Skipped []int
	Failed  []RowFailure
}

// Commit writes one entry per valid row. Invalid rows are skipped and never
// block the valid ones. A conflict or validation error from the store is
// recorded against its row and the batch goes on; any other store error
// stops the commit and is returned with the partial result.
func Commit(store EntryCreator, userID string, rows []Row) (CommitResult, error) {
	var res CommitResult
	for _, row := range rows {
		if !row.Valid {
			res.Skipped = append(res.Skipped, row.RowNumber)
			continue
		}
		entry, err := store.CreateEntry(row.Draft(userID))
		if err != nil {
			var conflict *derrors.ConflictError
			var invalid *derrors.ValidationError
			if errors.As(err, &conflict) || errors.As(err, &invalid) {
				logger.Warn("Import row rejected by store", "row", row.RowNumber, "error", err)
				res.Failed = append(res.Failed, RowFailure{Row: row.RowNumber, Err: err})
				continue
			}
			return res, fmt.Errorf("failed to import row %d: %w", row.RowNumber, err)
		}
		res.Created = append(res.Created, entry)
	}
	logger.Info("Import committed", "created", len(res.Created), "skipped", len(res.Skipped), "failed", len(res.Failed))
	return res, nil
}
