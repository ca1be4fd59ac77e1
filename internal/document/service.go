package document

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"resumeBuilder/internal/metrics"
)

// Service 负责简历与作品集的持久化。每次保存在一个事务内完成：
// 先更新头记录（校验归属与版本号并加行锁），再逐个同步子集合。
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService returns a Service backed by db.
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

type step func() (ReconcileResult, error)

func runSteps(steps ...step) ([]ReconcileResult, error) {
	results := make([]ReconcileResult, 0, len(steps))
	for _, run := range steps {
		r, err := run()
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// inTx runs fn in one transaction bound to ctx. Cancelling ctx before commit rolls back.
func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// readTx gives multi-query reads one snapshot so a concurrent save is seen
// either entirely or not at all.
func (s *Service) readTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
}

// updateHeader overwrites the header columns of an owned document. A nil
// version skips the optimistic check; the stored version is bumped either way.
func updateHeader(tx *gorm.DB, model any, id string, userID uint, version *int, values map[string]any) error {
	q := tx.Model(model).Where("id = ? AND user_id = ?", id, userID)
	if version != nil {
		q = q.Where("version = ?", *version)
	}
	values["version"] = gorm.Expr("version + 1")

	res := q.Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(model).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFoundOrUnauthorized
	}
	return &ConflictError{Field: "version", Message: "document was changed by another save, reload and retry"}
}

func bySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC, id ASC")
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFoundOrUnauthorized
	}
	return classify(op, err)
}

// Kind names the error category for logs and metrics.
func Kind(err error) string {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		transientErr  *TransientError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFoundOrUnauthorized):
		return "not_found"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &conflictErr):
		return "conflict"
	case errors.As(err, &transientErr):
		return "transient"
	default:
		return "internal"
	}
}

func (s *Service) observe(kind, op, id string, err error, results []ReconcileResult) {
	metrics.ObserveSave(kind, op, Kind(err))
	if err != nil {
		s.logger.Warn("document save failed", "kind", kind, "op", op, "document_id", id, "error", err)
		return
	}
	attrs := []any{"kind", kind, "op", op, "document_id", id}
	for _, r := range results {
		metrics.ObserveReconcile(kind+"."+r.Collection, r.Deleted, r.Updated, r.Inserted)
		attrs = append(attrs, slog.Group(r.Collection, "deleted", r.Deleted, "updated", r.Updated, "inserted", r.Inserted))
	}
	s.logger.Info("document saved", attrs...)
}
