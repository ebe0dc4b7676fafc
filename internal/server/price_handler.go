package server

import (
	"github.com/gin-gonic/gin"

	"swapPay/internal/server/httputil"
)

type PriceHandler struct {
	prices PriceReader
}

func NewPriceHandler(prices PriceReader) *PriceHandler {
	return &PriceHandler{prices: prices}
}

func (h *PriceHandler) Root() string {
	return "/price"
}

func (h *PriceHandler) SetRoutes(group *gin.RouterGroup) {
	group.GET("", h.getPrice)
}

func (h *PriceHandler) getPrice(c *gin.Context) {
	httputil.Success(c, h.prices.Price(c.Request.Context()))
}
