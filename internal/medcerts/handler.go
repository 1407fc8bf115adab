package medcerts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/j1a5h3ng/attendance-app/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/medical-certificates", h.Submit)
	r.GET("/medical-certificates", h.List)

	// 審査は管理者のみ
	admin.PATCH("/medical-certificates/:id/status", h.UpdateStatus)
	admin.GET("/medical-certificates/all", h.ListAll)
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitCertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrInvalid("invalid json or missing required fields"))
		return
	}

	cert, err := h.svc.Submit(c.Request.Context(),
		c.GetString(auth.CtxUserIDKey), c.GetString(auth.CtxUserNameKey), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

func (h *Handler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListAll(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrInvalid("invalid json"))
		return
	}
	cert, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		c.JSON(toHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, cert)
}
