package handler

import (
	"net/http"

	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	engine *workflow.Engine
}

func NewWorkflowHandler(engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

// GetStatus 查询实例状态与审计历史
func (h *WorkflowHandler) GetStatus(c *gin.Context) {
	status, err := h.engine.GetStatus(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", status)
}

// ListEscalations 列出等待人工处理的升级实例
func (h *WorkflowHandler) ListEscalations(c *gin.Context) {
	instances, err := h.engine.ListEscalations()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", instances)
}

// AcknowledgeRequest 升级确认请求
type AcknowledgeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// Acknowledge 人工确认升级实例
func (h *WorkflowHandler) Acknowledge(c *gin.Context) {
	var req AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.engine.Dispatch(c.Request.Context(), workflow.Event{
		Kind:       workflow.EventEscalationAck,
		InstanceID: c.Param("id"),
		Resolution: req.Resolution,
	})
	if err != nil {
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "升级已确认", inst)
}

// Cancel 操作员取消非终态实例
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	inst, err := h.engine.Dispatch(c.Request.Context(), workflow.Event{
		Kind:       workflow.EventCancelRequested,
		InstanceID: c.Param("id"),
	})
	if err != nil {
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "实例已取消", inst)
}

// Reconciliation 放款对账
func (h *WorkflowHandler) Reconciliation(c *gin.Context) {
	result, err := h.engine.Reconcile()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", result)
}
