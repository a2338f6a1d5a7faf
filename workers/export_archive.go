package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

// UsersExporter renders the users CSV.
type UsersExporter interface {
	ExportUsers(ctx context.Context, w io.Writer, f services.UserFilter) (int, error)
}

// ObjectStore stores an object and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ExportArchiver snapshots the full users export into object storage.
type ExportArchiver struct {
	reports UsersExporter
	store   ObjectStore
	log     *zap.Logger
	now     func() time.Time
}

func NewExportArchiver(reports UsersExporter, store ObjectStore, log *zap.Logger) *ExportArchiver {
	return &ExportArchiver{reports: reports, store: store, log: log.Named("export_archive"), now: time.Now}
}

func (a *ExportArchiver) Run(ctx context.Context) error {
	var buf bytes.Buffer
	rows, err := a.reports.ExportUsers(ctx, &buf, services.UserFilter{})
	if err != nil {
		return fmt.Errorf("render users export: %w", err)
	}

	key := "exports/" + utils.ExportFilename("usuarios", "", a.now(), "2006-01-02_15-04-05")
	url, err := a.store.Put(ctx, key, buf.Bytes(), "text/csv; charset=UTF-8")
	if err != nil {
		return err
	}

	a.log.Info("users export archived", zap.String("key", key), zap.String("url", url), zap.Int("rows", rows))
	return nil
}
