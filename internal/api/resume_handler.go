package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/document"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

const exportLinkTTL = 5 * time.Minute

// ResumeStore is the resume half of document.Service.
type ResumeStore interface {
	CreateResume(ctx context.Context, userID uint, draft document.ResumeDraft) (string, error)
	UpdateResume(ctx context.Context, userID uint, id string, draft document.ResumeDraft) error
	DeleteResume(ctx context.Context, userID uint, id string) error
	GetResume(ctx context.Context, userID uint, id string) (*document.Resume, error)
	ListResumes(ctx context.Context, userID uint) ([]document.ResumeSummary, error)
	UpdateExport(ctx context.Context, userID uint, id, status, objectKey string) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportStorage covers what the API does with exported PDFs.
type ExportStorage interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	docs     ResumeStore
	tasks    TaskEnqueuer
	storage  ExportStorage
	maxRetry int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(docs ResumeStore, enqueuer TaskEnqueuer, storageClient ExportStorage, maxRetry int) *ResumeHandler {
	return &ResumeHandler{
		docs:     docs,
		tasks:    enqueuer,
		storage:  storageClient,
		maxRetry: maxRetry,
	}
}

// ListResumes 列出用户全部简历，最新创建的在前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.docs.ListResumes(c.Request.Context(), userID)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateResume 保存一份新的简历及全部子条目。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var draft document.ResumeDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id, err := h.docs.CreateResume(ctx, userID, draft)
	if err != nil {
		respondDocumentError(c, err)
		return
	}

	resume, err := h.docs.GetResume(ctx, userID, id)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

// GetResume 返回完整简历，子条目按保存顺序排列。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resume, err := h.docs.GetResume(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// UpdateResume 覆盖简历并同步各子集合，返回保存后的文档。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var draft document.ResumeDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.docs.UpdateResume(ctx, userID, id, draft); err != nil {
		respondDocumentError(c, err)
		return
	}

	resume, err := h.docs.GetResume(ctx, userID, id)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// DeleteResume 删除简历，并清理其导出的 PDF。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.docs.DeleteResume(ctx, userID, id); err != nil {
		respondDocumentError(c, err)
		return
	}

	// 对象清理失败不影响删除结果
	if err := h.storage.DeletePrefix(ctx, storage.ExportPrefix(userID, id)); err != nil {
		middleware.LoggerFromContext(c).Warn("delete resume exports failed",
			slog.String("resume_id", id),
			slog.Any("error", err),
		)
	}
	c.Status(http.StatusNoContent)
}

// RequestExport 将 PDF 导出任务入队并立即返回 202。
func (h *ResumeHandler) RequestExport(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	logger := middleware.LoggerFromContext(c).With(slog.String("resume_id", id))

	if _, err := h.docs.GetResume(ctx, userID, id); err != nil {
		respondDocumentError(c, err)
		return
	}

	task, err := tasks.NewExportPDFTask(tasks.ExportPDFPayload{
		ResumeID:      id,
		UserID:        userID,
		CorrelationID: middleware.GetCorrelationID(c),
	}, h.maxRetry)
	if err != nil {
		logger.Error("build export task failed", slog.Any("error", err))
		Internal(c, "failed to create task")
		return
	}

	if err := h.docs.UpdateExport(ctx, userID, id, database.PdfStatusPending, ""); err != nil {
		respondDocumentError(c, err)
		return
	}

	info, err := h.tasks.EnqueueContext(ctx, task)
	if err != nil {
		logger.Error("enqueue export failed", slog.Any("error", err))
		if err := h.docs.UpdateExport(ctx, userID, id, database.PdfStatusFailed, ""); err != nil {
			logger.Error("mark export failed", slog.Any("error", err))
		}
		Unavailable(c, "failed to enqueue export")
		return
	}

	logger.Info("export enqueued", slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": info.ID,
		"status":  database.PdfStatusPending,
	})
}

// GetExport 返回最近一次导出 PDF 的预签名下载链接。
func (h *ResumeHandler) GetExport(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	resume, err := h.docs.GetResume(ctx, userID, c.Param("id"))
	if err != nil {
		respondDocumentError(c, err)
		return
	}

	if resume.PdfStatus != database.PdfStatusCompleted || resume.PdfObjectKey() == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "pdf not ready",
			"status": resume.PdfStatus,
		})
		return
	}

	logger := middleware.LoggerFromContext(c)
	found, err := h.storage.Exists(ctx, resume.PdfObjectKey())
	if err != nil {
		logger.Error("stat export failed", slog.Any("error", err))
		Unavailable(c, "storage unavailable")
		return
	}
	if !found {
		// 对象被生命周期规则清理，需要重新导出
		if err := h.docs.UpdateExport(ctx, userID, resume.ID, database.PdfStatusFailed, ""); err != nil {
			logger.Warn("mark missing export failed", slog.Any("error", err))
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":  "pdf expired, export again",
			"status": database.PdfStatusFailed,
		})
		return
	}

	url, err := h.storage.PresignGet(ctx, resume.PdfObjectKey(), exportLinkTTL, exportFilename(resume.Title))
	if err != nil {
		logger.Error("presign export failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"status":     resume.PdfStatus,
		"expires_in": int(exportLinkTTL.Seconds()),
	})
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

func exportFilename(title string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(title, ""), " .")
	if name == "" {
		name = "resume"
	}
	return name + ".pdf"
}
