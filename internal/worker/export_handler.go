package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/document"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

// Documents is the slice of document.Service the exporter needs.
type Documents interface {
	GetResume(ctx context.Context, userID uint, id string) (*document.Resume, error)
	UpdateExport(ctx context.Context, userID uint, id, status, objectKey string) error
}

type Uploader interface {
	UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// PrintFunc turns HTML into PDF bytes.
type PrintFunc func(ctx context.Context, html string) ([]byte, error)

// ExportHandler 消费简历 PDF 导出任务：读取文档、渲染、上传、回写状态并通知前端。
type ExportHandler struct {
	docs     Documents
	storage  Uploader
	print    PrintFunc
	notifier Notifier
	logger   *slog.Logger
	// final 判断本次失败后是否不再重试
	final func(ctx context.Context, err error) bool
}

func NewExportHandler(docs Documents, storage Uploader, print PrintFunc, notifier Notifier, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		docs:     docs,
		storage:  storage,
		print:    print,
		notifier: notifier,
		logger:   logger,
		final:    finalAttempt,
	}
}

// exportFailure carries the errcode reported to the browser.
type exportFailure struct {
	code int
	err  error
}

func (e *exportFailure) Error() string { return e.err.Error() }
func (e *exportFailure) Unwrap() error { return e.err }

func fail(code int, format string, args ...any) error {
	return &exportFailure{code: code, err: fmt.Errorf(format, args...)}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseExportPDFPayload(t)
	if err != nil {
		h.logger.Error("invalid export payload", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("resume_id", payload.ResumeID),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("export started")

	defer func() {
		if retErr == nil || !h.final(ctx, retErr) {
			return
		}
		code := errcode.SystemError
		var f *exportFailure
		if errors.As(retErr, &f) {
			code = f.code
		}
		if code != errcode.DocumentMissing {
			if err := h.docs.UpdateExport(ctx, payload.UserID, payload.ResumeID, database.PdfStatusFailed, ""); err != nil {
				log.Error("mark export failed", slog.Any("error", err))
			}
		}
		h.notify(ctx, log, payload, ExportNotifyMessage{
			Status:       NotifyError,
			ErrorCode:    code,
			ErrorMessage: retErr.Error(),
		})
	}()

	resume, err := h.docs.GetResume(ctx, payload.UserID, payload.ResumeID)
	if errors.Is(err, document.ErrNotFoundOrUnauthorized) {
		log.Warn("resume gone, skipping export")
		return fmt.Errorf("%w: %w", fail(errcode.DocumentMissing, "resume %s not found", payload.ResumeID), asynq.SkipRetry)
	}
	if err != nil {
		return fail(errcode.SystemError, "load resume: %w", err)
	}

	html, err := pdf.RenderResume(resume)
	if err != nil {
		return fail(errcode.RenderFailed, "%w", err)
	}
	data, err := h.print(ctx, html)
	if err != nil {
		return fail(errcode.RenderFailed, "print pdf: %w", err)
	}

	key := storage.NewExportKey(payload.UserID, payload.ResumeID)
	if err := h.storage.UploadFile(ctx, key, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		return fail(errcode.StorageFailed, "upload pdf: %w", err)
	}

	if err := h.docs.UpdateExport(ctx, payload.UserID, payload.ResumeID, database.PdfStatusCompleted, key); err != nil {
		if errors.Is(err, document.ErrNotFoundOrUnauthorized) {
			return fmt.Errorf("%w: %w", fail(errcode.DocumentMissing, "resume %s deleted during export", payload.ResumeID), asynq.SkipRetry)
		}
		return fail(errcode.SystemError, "record export: %w", err)
	}

	h.notify(ctx, log, payload, ExportNotifyMessage{Status: NotifyCompleted, ErrorCode: errcode.OK})
	log.Info("export completed", slog.String("object_key", key), slog.Int("bytes", len(data)))
	return nil
}

func (h *ExportHandler) notify(ctx context.Context, log *slog.Logger, p tasks.ExportPDFPayload, msg ExportNotifyMessage) {
	msg.ResumeID = p.ResumeID
	msg.CorrelationID = p.CorrelationID
	if err := h.notifier.Notify(ctx, p.UserID, msg); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}
}

// finalAttempt reports whether asynq will not run the task again.
func finalAttempt(ctx context.Context, err error) bool {
	if errors.Is(err, asynq.SkipRetry) {
		return true
	}
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retried >= maxRetry
}
