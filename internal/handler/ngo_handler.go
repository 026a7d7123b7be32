package handler

import (
	"context"
	"net/http"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logic"
	"github.com/gin-gonic/gin"
)

type NGOHandler struct {
	config      *config.Config
	ngoLogic    *logic.NGOLogic
	researchCap capability.ResearchProvider
}

func NewNGOHandler(cfg *config.Config, ngoLogic *logic.NGOLogic, researchCap capability.ResearchProvider) *NGOHandler {
	return &NGOHandler{
		config:      cfg,
		ngoLogic:    ngoLogic,
		researchCap: researchCap,
	}
}

// ResearchRequest NGO检索请求
type ResearchRequest struct {
	Category string `json:"category" binding:"required"`
	Region   string `json:"region" binding:"required"`
}

// Research 按需运行检索周期，候选按信任分阈值准入
func (h *NGOHandler) Research(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stage := h.config.Stage("research")
	ctx, cancel := context.WithTimeout(c.Request.Context(), stage.Timeout())
	defer cancel()

	candidates, err := h.researchCap.Research(ctx, capability.ResearchQuery{
		Category: req.Category,
		Region:   req.Region,
	})
	if err != nil {
		ErrorResponse(c, statusForError(err), err.Error())
		return
	}

	admitted, err := h.ngoLogic.AdmitCandidates(candidates, h.config.Research.TrustThreshold)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "检索完成", gin.H{
		"candidates": len(candidates),
		"admitted":   admitted,
	})
}

// ListNGOs 获取NGO名录
func (h *NGOHandler) ListNGOs(c *gin.Context) {
	records, err := h.ngoLogic.ListNGOs(c.Query("status"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", records)
}
