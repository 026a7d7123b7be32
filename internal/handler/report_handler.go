package handler

import (
	"net/http"

	"github.com/blues/cps/internal/logic"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportLogic *logic.ReportLogic
}

func NewReportHandler(reportLogic *logic.ReportLogic) *ReportHandler {
	return &ReportHandler{reportLogic: reportLogic}
}

// ListReports 查询影响力报告，可按捐款人或项目过滤
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.reportLogic.ListReports(c.Query("donor_id"), c.Query("project_id"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", reports)
}
