package server

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"swapPay/internal/server/httputil"
)

// ExecuteRequest carries transactions already signed by the wallet.
type ExecuteRequest struct {
	// Owner, when set, must be the signer of every transaction.
	Owner     string   `json:"owner"`
	SignedTxs []string `json:"signed_txs" binding:"required,min=1"`
}

type ExecuteResponse struct {
	TxHash string `json:"tx_hash"`
}

type ExecuteHandler struct {
	executor Submitter
}

func NewExecuteHandler(executor Submitter) *ExecuteHandler {
	return &ExecuteHandler{executor: executor}
}

func (h *ExecuteHandler) Root() string {
	return "/execute"
}

func (h *ExecuteHandler) SetRoutes(group *gin.RouterGroup) {
	group.POST("", h.execute)
}

func (h *ExecuteHandler) execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	var owner common.Address
	if req.Owner != "" {
		if !common.IsHexAddress(req.Owner) {
			httputil.BadRequest(c, "invalid owner address")
			return
		}
		owner = common.HexToAddress(req.Owner)
	}

	hash, err := h.executor.Submit(c.Request.Context(), owner, req.SignedTxs)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, ExecuteResponse{TxHash: hash.Hex()})
}

type StatusHandler struct {
	status StatusReader
}

func NewStatusHandler(status StatusReader) *StatusHandler {
	return &StatusHandler{status: status}
}

func (h *StatusHandler) Root() string {
	return "/status"
}

func (h *StatusHandler) SetRoutes(group *gin.RouterGroup) {
	group.GET("/:id", h.getStatus)
}

func (h *StatusHandler) getStatus(c *gin.Context) {
	raw, err := hexutil.Decode(c.Param("id"))
	if err != nil || len(raw) != common.HashLength {
		httputil.BadRequest(c, "invalid transaction hash")
		return
	}
	status, err := h.status.Status(c.Request.Context(), common.BytesToHash(raw))
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, status)
}
