package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/metrics"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/storage"
)

const sweepTimeout = 10 * time.Minute

// UploadSweepJob removes upload folders whose record no longer exists.
// Folders can be orphaned when a hard delete loses the race against the
// filesystem or when the process dies between the delete and the cleanup.
type UploadSweepJob struct {
	baseDir string
	store   storage.Storage
	records repository.RecordRepository
	logger  *zap.Logger
}

func NewUploadSweepJob(baseDir string, store storage.Storage, records repository.RecordRepository, logger *zap.Logger) *UploadSweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadSweepJob{baseDir: baseDir, store: store, records: records, logger: logger}
}

func (j *UploadSweepJob) SweepOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	root := filepath.Join(j.baseDir, storage.UploadRoot)
	categories, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("upload sweep cannot read root", zap.String("root", root), zap.Error(err))
		}
		return
	}

	removed := 0
	for _, category := range categories {
		if !category.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, category.Name()))
		if err != nil {
			j.logger.Warn("upload sweep cannot read category",
				zap.String("category", category.Name()), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			id, err := uuid.Parse(entry.Name())
			if err != nil {
				continue
			}

			_, err = j.records.FindByID(ctx, category.Name(), id)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				j.logger.Warn("upload sweep lookup failed",
					zap.String("category", category.Name()),
					zap.String("record_id", entry.Name()),
					zap.Error(err))
				continue
			}

			if j.store.DeleteFolder(category.Name(), entry.Name()) {
				removed++
				j.logger.Info("removed orphan upload folder",
					zap.String("category", category.Name()),
					zap.String("record_id", entry.Name()))
			}
		}
	}
	metrics.AddSweptUploadFolders(removed)
}
