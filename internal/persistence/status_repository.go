package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/IliaW/robots-gate/internal/model"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.0 --name StatusStorage
type StatusStorage interface {
	RecordStatus(context.Context, string, model.UrlStatus) error
}

type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// RecordStatus sets the terminal status of the url. Writing the same status twice is harmless
// and an url unknown to the store is skipped without an error.
func (r *StatusRepository) RecordStatus(ctx context.Context, url string, status model.UrlStatus) error {
	result, err := r.db.ExecContext(ctx, "UPDATE urls SET status = $1 WHERE url = $2", string(status), url)
	if err != nil {
		return fmt.Errorf("failed to update url status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		slog.Warn("failed to get affected rows.", slog.String("err", err.Error()))
		return nil
	}
	if rows == 0 {
		slog.Debug("url not found in the database. Status is not recorded.", slog.String("url", url),
			slog.String("status", string(status)))
		return nil
	}
	slog.Debug("url status updated in db.", slog.String("url", url), slog.String("status", string(status)))

	return nil
}
