package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/document"
)

// PortfolioStore is the portfolio half of document.Service.
type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, userID uint, draft document.PortfolioDraft) (string, error)
	UpdatePortfolio(ctx context.Context, userID uint, id string, draft document.PortfolioDraft) error
	DeletePortfolio(ctx context.Context, userID uint, id string) error
	GetPortfolio(ctx context.Context, userID uint, id string) (*document.Portfolio, error)
	ListPortfolios(ctx context.Context, userID uint) ([]document.PortfolioSummary, error)
}

// PortfolioHandler 处理作品集的增删改查。
type PortfolioHandler struct {
	docs PortfolioStore
}

func NewPortfolioHandler(docs PortfolioStore) *PortfolioHandler {
	return &PortfolioHandler{docs: docs}
}

func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.docs.ListPortfolios(c.Request.Context(), userID)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreatePortfolio 创建作品集，slug 重复返回 409。
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var draft document.PortfolioDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id, err := h.docs.CreatePortfolio(ctx, userID, draft)
	if err != nil {
		respondDocumentError(c, err)
		return
	}

	portfolio, err := h.docs.GetPortfolio(ctx, userID, id)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, portfolio)
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	portfolio, err := h.docs.GetPortfolio(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// UpdatePortfolio 覆盖作品集并同步项目与经历。
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var draft document.PortfolioDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.docs.UpdatePortfolio(ctx, userID, id, draft); err != nil {
		respondDocumentError(c, err)
		return
	}

	portfolio, err := h.docs.GetPortfolio(ctx, userID, id)
	if err != nil {
		respondDocumentError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.docs.DeletePortfolio(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondDocumentError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
