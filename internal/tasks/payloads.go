package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，生产者与消费者共用。
const (
	TypeDocumentExportPDF = "document:export_pdf"
)

// ExportPDFPayload 描述一次简历 PDF 导出。
type ExportPDFPayload struct {
	ResumeID      string `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportPDFTask 构造导出任务，maxRetry 来自 worker 配置。
func NewExportPDFTask(p ExportPDFPayload, maxRetry int) (*asynq.Task, error) {
	if p.ResumeID == "" || p.UserID == 0 {
		return nil, errors.New("export task needs resume id and user id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentExportPDF, data,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(2*time.Minute),
	), nil
}

// ParseExportPDFPayload decodes a task payload. Malformed payloads are never retried.
func ParseExportPDFPayload(t *asynq.Task) (ExportPDFPayload, error) {
	var p ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode export payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.ResumeID == "" || p.UserID == 0 {
		return p, fmt.Errorf("incomplete export payload: %w", asynq.SkipRetry)
	}
	return p, nil
}

// NotifyChannel 是用户通知的 Redis Pub/Sub 频道，worker 发布、WebSocket 订阅。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
