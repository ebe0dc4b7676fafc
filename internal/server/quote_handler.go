package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"swapPay/internal/model"
	"swapPay/internal/server/httputil"
	"swapPay/internal/swap"
)

// QuoteRequest is accepted as query parameters or a JSON body.
type QuoteRequest struct {
	TokenIn  string `form:"token_in" json:"token_in" binding:"required"`
	TokenOut string `form:"token_out" json:"token_out" binding:"required"`
	// Amount is human units of TokenIn, e.g. "0.5".
	Amount string `form:"amount" json:"amount" binding:"required"`
}

func (r QuoteRequest) swapRequest() model.SwapRequest {
	return model.SwapRequest{TokenIn: r.TokenIn, TokenOut: r.TokenOut, Amount: r.Amount}
}

type QuoteHandler struct {
	svc SwapService
}

func NewQuoteHandler(svc SwapService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(group *gin.RouterGroup) {
	group.GET("", h.getQuote)
	group.POST("", h.postQuote)
}

func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	h.quote(c, req)
}

func (h *QuoteHandler) postQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.quote(c, req)
}

func (h *QuoteHandler) quote(c *gin.Context, req QuoteRequest) {
	quote, err := h.svc.Quote(c.Request.Context(), req.swapRequest())
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, quote)
}

// RouteRequest asks for an encoded router call.
type RouteRequest struct {
	QuoteRequest
	SlippageBps     *uint32 `json:"slippage_bps"`
	DeadlineSeconds int64   `json:"deadline_seconds"`
}

type RouteHandler struct {
	svc SwapService
}

func NewRouteHandler(svc SwapService) *RouteHandler {
	return &RouteHandler{svc: svc}
}

func (h *RouteHandler) Root() string {
	return "/route"
}

func (h *RouteHandler) SetRoutes(group *gin.RouterGroup) {
	group.POST("", h.postRoute)
}

func (h *RouteHandler) postRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.SlippageBps != nil && *req.SlippageBps >= 10_000 {
		httputil.BadRequest(c, "slippage_bps must be below 10000")
		return
	}
	if req.DeadlineSeconds < 0 {
		httputil.BadRequest(c, "deadline_seconds must not be negative")
		return
	}

	route, err := h.svc.Route(c.Request.Context(), req.swapRequest(), swap.RouteOptions{
		SlippageBps: req.SlippageBps,
		Deadline:    time.Duration(req.DeadlineSeconds) * time.Second,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, route)
}
