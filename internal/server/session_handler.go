package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"swapPay/internal/model"
	"swapPay/internal/server/httputil"
	"swapPay/internal/session"
	"swapPay/internal/storage"
)

type createSessionRequest struct {
	UserAddress string `json:"user_address" binding:"required"`
}

type scanRequest struct {
	Code string `json:"code"`
}

type amountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// SessionHandler exposes payment and swap sessions. Each signal maps to one
// state machine operation and returns the session snapshot. Reaped sessions
// stay readable through the archive when one is configured.
type SessionHandler struct {
	sessions *session.Manager
	archive  storage.Archive
	settle   func(*session.Session)
}

func NewSessionHandler(sessions *session.Manager, archive storage.Archive, settle func(*session.Session)) *SessionHandler {
	return &SessionHandler{sessions: sessions, archive: archive, settle: settle}
}

func (h *SessionHandler) Root() string {
	return "/sessions"
}

func (h *SessionHandler) SetRoutes(group *gin.RouterGroup) {
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.GET("/:id/events", h.events)
	group.POST("/:id/scan", h.scan)
	group.POST("/:id/swap", h.beginSwap)
	group.POST("/:id/amount", h.setAmount)
	group.POST("/:id/prepare", h.prepare)
	group.POST("/:id/confirm", h.confirm)
	group.POST("/:id/cancel", h.cancel)
}

func (h *SessionHandler) create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.sessions.Create(req.UserAddress)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	httputil.Success(c, sess.Snapshot())
}

func (h *SessionHandler) get(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.sessions.Get(id)
	if err == nil {
		httputil.Success(c, sess.Snapshot())
		return
	}
	if !errors.Is(err, model.ErrSessionNotFound) || h.archive == nil {
		handleError(c, err)
		return
	}
	snapshot, found, err := h.archive.LoadSession(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if !found {
		httputil.NotFound(c, "session not found: "+id)
		return
	}
	httputil.Success(c, snapshot)
}

// events lists the journaled transitions of a session.
func (h *SessionHandler) events(c *gin.Context) {
	id := c.Param("id")
	if h.archive == nil {
		httputil.NotFound(c, "session journal is not readable")
		return
	}
	events, err := h.archive.LoadEvents(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(events) == 0 {
		httputil.NotFound(c, "session not found: "+id)
		return
	}
	httputil.Success(c, events)
}

// scan starts scanning; with a code it also submits it.
func (h *SessionHandler) scan(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req scanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	if sess.Snapshot().State == model.StateIdle {
		if err := sess.StartScan(); err != nil {
			handleError(c, err)
			return
		}
	}
	if req.Code != "" {
		if err := sess.SubmitScan(req.Code); err != nil {
			handleError(c, err)
			return
		}
	}
	httputil.Success(c, sess.Snapshot())
}

func (h *SessionHandler) beginSwap(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respond(c, sess, sess.BeginSwap(req.swapRequest()))
}

func (h *SessionHandler) setAmount(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respond(c, sess, sess.SetAmount(req.Amount))
}

func (h *SessionHandler) prepare(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, sess, sess.Prepare(c.Request.Context()))
}

func (h *SessionHandler) confirm(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req session.Confirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := sess.Confirm(c.Request.Context(), req); err != nil {
		handleError(c, err)
		return
	}
	if h.settle != nil {
		h.settle(sess)
	}
	httputil.Success(c, sess.Snapshot())
}

func (h *SessionHandler) cancel(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, sess, sess.Cancel())
}

func (h *SessionHandler) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) respond(c *gin.Context, sess *session.Session, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, sess.Snapshot())
}
