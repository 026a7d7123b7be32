package logic

import (
	"errors"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DonationLogic 捐款业务逻辑
type DonationLogic struct {
	db *gorm.DB
}

// NewDonationLogic 创建捐款业务逻辑
func NewDonationLogic(db *gorm.DB) *DonationLogic {
	return &DonationLogic{db: db}
}

// CreateDonation 记录捐款，入库后不可修改；
// 重复的捐款ID直接忽略，返回是否新建
func (d *DonationLogic) CreateDonation(donation *model.Donation) (bool, error) {
	if err := d.validateDonation(donation); err != nil {
		return false, err
	}

	res := d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(donation)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetDonation 获取捐款记录
func (d *DonationLogic) GetDonation(id string) (*model.Donation, error) {
	var donation model.Donation
	if err := d.db.First(&donation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("捐款记录不存在")
		}
		return nil, err
	}
	return &donation, nil
}

// validateDonation 验证捐款数据
func (d *DonationLogic) validateDonation(donation *model.Donation) error {
	if donation.ID == "" {
		return &capability.ValidationError{Field: "id", Reason: "捐款ID不能为空"}
	}
	if donation.DonorID == "" {
		return &capability.ValidationError{Field: "donor_id", Reason: "捐款人不能为空"}
	}
	if donation.Amount <= 0 {
		return &capability.ValidationError{Field: "amount", Reason: "金额必须大于0"}
	}
	if donation.ProjectID == "" {
		return &capability.ValidationError{Field: "project_id", Reason: "项目ID不能为空"}
	}
	return nil
}
