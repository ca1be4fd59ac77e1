package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/document"
	"resumeBuilder/internal/storage"
)

const publicImageTTL = time.Hour

type PublicPortfolioStore interface {
	GetPublicPortfolio(ctx context.Context, slugOrID string) (*document.PublicPortfolio, error)
}

// AssetLinker is satisfied by *storage.Client.
type AssetLinker interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
}

// PublicHandler 提供无需登录的作品集页面数据。
type PublicHandler struct {
	docs  PublicPortfolioStore
	links AssetLinker
}

func NewPublicHandler(docs PublicPortfolioStore, links AssetLinker) *PublicHandler {
	return &PublicHandler{docs: docs, links: links}
}

// GetPortfolio 按 slug（或 id）返回公开视图，项目图片的对象键替换为临时链接。
func (h *PublicHandler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	portfolio, err := h.docs.GetPublicPortfolio(ctx, c.Param("slug"))
	if err != nil {
		respondDocumentError(c, err)
		return
	}

	owner := portfolio.OwnerID()
	for i := range portfolio.Projects {
		key := portfolio.Projects[i].ImageURL
		if !storage.IsUserAssetKey(owner, key) {
			continue
		}
		url, err := h.links.PresignGet(ctx, key, publicImageTTL, "")
		if err != nil {
			middleware.LoggerFromContext(c).Warn("presign project image failed",
				slog.String("object_key", key),
				slog.Any("error", err),
			)
			portfolio.Projects[i].ImageURL = ""
			continue
		}
		portfolio.Projects[i].ImageURL = url
	}

	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, portfolio)
}
