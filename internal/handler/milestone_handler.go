package handler

import (
	"net/http"

	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
)

type MilestoneHandler struct {
	engine *workflow.Engine
}

func NewMilestoneHandler(engine *workflow.Engine) *MilestoneHandler {
	return &MilestoneHandler{engine: engine}
}

// SubmitProofRequest 里程碑证明提交请求
type SubmitProofRequest struct {
	ProjectID string   `json:"project_id"`
	ProofRefs []string `json:"proof_refs" binding:"required"`
}

// SubmitProof 提交里程碑证明
func (h *MilestoneHandler) SubmitProof(c *gin.Context) {
	var req SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.engine.Dispatch(c.Request.Context(), workflow.Event{
		Kind:        workflow.EventProofSubmitted,
		MilestoneID: c.Param("id"),
		ProjectID:   req.ProjectID,
		ProofRefs:   req.ProofRefs,
	})
	if err != nil {
		if workflow.IsDuplicate(err) {
			SuccessResponse(c, http.StatusOK, "证明已处理过，重复提交被忽略", nil)
			return
		}
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "证明已处理", inst)
}

// NotifyVerified 接收外部验证通过通知；重复投递会被幂等丢弃
func (h *MilestoneHandler) NotifyVerified(c *gin.Context) {
	inst, err := h.engine.Dispatch(c.Request.Context(), workflow.Event{
		Kind:        workflow.EventVerifiedNotice,
		MilestoneID: c.Param("id"),
	})
	if err != nil {
		if workflow.IsDuplicate(err) {
			SuccessResponse(c, http.StatusOK, "放款已执行，重复通知被忽略", nil)
			return
		}
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "通知已处理", inst)
}
