package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/j1a5h3ng/attendance-app/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/settings", h.Get)
	r.PUT("/settings", h.Put)
}

func (h *Handler) Get(c *gin.Context) {
	st, err := h.svc.Get(c.Request.Context(), c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) Put(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrInvalid("invalid json"))
		return
	}
	st, err := h.svc.Put(c.Request.Context(), c.GetString(auth.CtxUserIDKey), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, st)
}
