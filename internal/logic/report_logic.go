package logic

import (
	"gorm.io/gorm"

	"github.com/blues/cps/internal/model"
)

// ReportLogic 影响力报告业务逻辑
type ReportLogic struct {
	db *gorm.DB
}

// NewReportLogic 创建影响力报告业务逻辑
func NewReportLogic(db *gorm.DB) *ReportLogic {
	return &ReportLogic{db: db}
}

// CreateReport 保存影响力报告
func (r *ReportLogic) CreateReport(report *model.ImpactReport) error {
	return r.db.Create(report).Error
}

// ListReports 查询影响力报告，可按捐款人或项目过滤
func (r *ReportLogic) ListReports(donorID, projectID string) ([]model.ImpactReport, error) {
	var reports []model.ImpactReport
	query := r.db.Order("generated_at DESC")
	if donorID != "" {
		query = query.Where("donor_id = ?", donorID)
	}
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
