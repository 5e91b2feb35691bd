package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/pkg/response"
)

func (h *handlers) createTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	t, err := h.cfg.Catalog.CreateTenant(c.Request.Context(), req.DisplayName, req.PreferredSlug, req.Timezone, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTenantResponse(t))
}

func (h *handlers) getTenant(c *gin.Context) {
	t, err := h.cfg.Catalog.GetTenant(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTenantResponse(t))
}

func (h *handlers) getTenantBySlug(c *gin.Context) {
	t, err := h.cfg.Catalog.GetTenantBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTenantResponse(t))
}

func (h *handlers) suspendTenant(c *gin.Context) {
	if err := h.cfg.Catalog.SuspendTenant(c.Request.Context(), c.Param("tenantId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) reactivateTenant(c *gin.Context) {
	if err := h.cfg.Catalog.ReactivateTenant(c.Request.Context(), c.Param("tenantId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	cat, err := h.cfg.Catalog.CreateCategory(c.Request.Context(), c.Param("tenantId"), req.Name, req.Description, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(cat))
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.cfg.Catalog.ListCategories(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, cat := range cats {
		out = append(out, newCategoryResponse(cat))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, 1, len(out), len(out)))
}
