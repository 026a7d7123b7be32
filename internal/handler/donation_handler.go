package handler

import (
	"net/http"
	"time"

	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
)

type DonationHandler struct {
	engine *workflow.Engine
}

func NewDonationHandler(engine *workflow.Engine) *DonationHandler {
	return &DonationHandler{engine: engine}
}

// SubmitDonationRequest 捐款提交请求
type SubmitDonationRequest struct {
	ID        string  `json:"id" binding:"required"`
	DonorID   string  `json:"donor_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
	Currency  string  `json:"currency"`
	TxRef     string  `json:"tx_ref"`
	ProjectID string  `json:"project_id" binding:"required"`
}

// SubmitDonation 提交捐款，启动工作流
func (h *DonationHandler) SubmitDonation(c *gin.Context) {
	var req SubmitDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USDC"
	}

	inst, err := h.engine.Dispatch(c.Request.Context(), workflow.Event{
		Kind: workflow.EventDonationDetected,
		Donation: &model.Donation{
			ID:        req.ID,
			DonorID:   req.DonorID,
			Amount:    req.Amount,
			Currency:  currency,
			TxRef:     req.TxRef,
			Timestamp: time.Now().UTC(),
			ProjectID: req.ProjectID,
		},
	})
	if err != nil {
		if workflow.IsDuplicate(err) {
			SuccessResponse(c, http.StatusOK, "重复的捐款信号，已忽略", nil)
			return
		}
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "捐款已受理", inst)
}
