package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/storage"
)

const (
	maxAssetBytes = 5 << 20
	assetLinkTTL  = 15 * time.Minute
)

// 允许上传的图片类型及其扩展名。
var assetExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

var errMalicious = errors.New("malicious file detected")

// AssetStorage is satisfied by *storage.Client.
type AssetStorage interface {
	UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
}

// Scanner 检查上传内容，发现病毒时返回 errMalicious。
type Scanner interface {
	Scan(r io.Reader) error
}

type clamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner returns nil for an empty address, which disables scanning.
func NewClamdScanner(addr string) Scanner {
	if addr == "" {
		return nil
	}
	return &clamdScanner{client: clamd.NewClamd(addr)}
}

func (s *clamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}
	var verdict error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			verdict = errMalicious
		default:
			if verdict == nil {
				verdict = fmt.Errorf("clamd: %s %s", result.Status, result.Description)
			}
		}
	}
	return verdict
}

// AssetHandler 负责处理作品集项目图片的上传与访问。
type AssetHandler struct {
	storage AssetStorage
	scanner Scanner
}

// NewAssetHandler 返回 AssetHandler 实例，scanner 为 nil 时跳过病毒扫描。
func NewAssetHandler(storageClient AssetStorage, scanner Scanner) *AssetHandler {
	return &AssetHandler{storage: storageClient, scanner: scanner}
}

// UploadAsset 处理受保护的图片上传，并在上传前扫描病毒。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size <= 0 || file.Size > maxAssetBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file must be between 1 byte and 5 MiB"})
		return
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(fileReader, maxAssetBytes+1))
	fileReader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}

	mime := mimetype.Detect(data)
	ext, allowed := assetExtensions[mime.String()]
	if !allowed {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only png, jpeg and webp images are accepted"})
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, errMalicious) {
				logger.Warn("rejected infected upload", slog.String("filename", file.Filename))
				BadRequest(c, errMalicious.Error())
				return
			}
			logger.Error("scan file", slog.Any("error", err))
			Unavailable(c, "failed to scan file")
			return
		}
	}

	data, err = shrinkImage(data, mime.String())
	if err != nil {
		logger.Info("rejected image", slog.String("filename", file.Filename), slog.Any("error", err))
		BadRequest(c, "invalid image")
		return
	}

	objectKey := storage.NewUserAssetKey(userID, ext)
	if err := h.storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), mime.String()); err != nil {
		logger.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"object_key": objectKey})
}

// GetAssetURL 返回资产的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}
	if !storage.IsUserAssetKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.storage.PresignGet(c.Request.Context(), objectKey, assetLinkTTL, "")
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
