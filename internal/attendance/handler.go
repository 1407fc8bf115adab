package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/j1a5h3ng/attendance-app/internal/platform/auth"
	"github.com/j1a5h3ng/attendance-app/internal/session"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 打刻
	r.POST("/attendance/clock-in", h.ClockIn)
	r.POST("/attendance/clock-out", h.ClockOut)

	// 同期トリガと未同期バッジ
	r.POST("/attendance/sync", h.Sync)
	r.GET("/attendance/pending-count", h.PendingCount)

	// セッションと履歴
	r.GET("/attendance/session", h.Session)
	r.GET("/attendance/records", h.ListRecords)
	r.GET("/attendance/stats", h.Stats)

	// クライアントの online/offline イベント
	r.POST("/connectivity", h.Connectivity)
}

func currentUser(c *gin.Context) session.User {
	return session.User{
		ID:   c.GetString(auth.CtxUserIDKey),
		Name: c.GetString(auth.CtxUserNameKey),
	}
}

func (h *Handler) ClockIn(c *gin.Context) {
	var req ClockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrInvalid("invalid json"))
			return
		}
	}

	resp, err := h.svc.ClockIn(c.Request.Context(), currentUser(c), req, c.Request.UserAgent())
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ClockOut(c *gin.Context) {
	var req ClockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrInvalid("invalid json"))
			return
		}
	}

	resp, err := h.svc.ClockOut(c.Request.Context(), currentUser(c), req, c.Request.UserAgent())
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Sync(c *gin.Context) {
	resp, err := h.svc.Sync(c.Request.Context())
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PendingCount(c *gin.Context) {
	resp, err := h.svc.PendingCount(c.Request.Context())
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Session(c.GetString(auth.CtxUserIDKey)))
}

func (h *Handler) Connectivity(c *gin.Context) {
	var req ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		c.JSON(http.StatusBadRequest, ErrInvalid("online is required"))
		return
	}
	h.svc.SetConnectivity(*req.Online)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListRecords(c *gin.Context) {
	q := ListQuery{
		UserID: c.DefaultQuery("user_id", c.GetString(auth.CtxUserIDKey)),
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Sort:   c.DefaultQuery("sort", DefaultSort),
	}
	if v := c.Query("from"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.From = &ms
		}
	}
	if v := c.Query("to"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.To = &ms
		}
	}

	items, total, err := h.svc.ListRecords(c.Request.Context(), q)
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) Stats(c *gin.Context) {
	from, err1 := strconv.ParseInt(c.Query("from"), 10, 64)
	to, err2 := strconv.ParseInt(c.Query("to"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrInvalid("from/to must be epoch millis"))
		return
	}

	rows, err := h.svc.Stats(c.Request.Context(), from, to, parseIntDefault(c.Query("limit"), 10))
	if err != nil {
		api := fromErr(err)
		c.JSON(toHTTPStatus(api), api)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
