package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
)

type GoalTemplate struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ClinicId           string          `gorm:"index;size:64;not null" json:"clinic_id"`
	Name               string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	MetricDefinitionId int             `gorm:"index;not null" json:"metric_definition_id"`
	TimePeriod         TimePeriod      `gorm:"type:enum('daily', 'weekly', 'monthly', 'quarterly', 'yearly');default:monthly" json:"time_period"`
	TargetValue        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"target_value"`
	Description        string          `gorm:"type:text" json:"description"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGoalTemplate struct {
	Name               string          `json:"name" binding:"required"`
	MetricDefinitionId int             `json:"metricDefinitionId" binding:"required"`
	TimePeriod         TimePeriod      `json:"timePeriod" binding:"required"`
	TargetValue        decimal.Decimal `json:"targetValue"`
	Description        string          `json:"description"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewGoalTemplate) validate(ctx context.Context, clinicId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[GoalTemplate](ctx, clinicId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[GoalTemplate](ctx, clinicId, "name", input.Name, id); err != nil {
		return err
	}
	// metricDefinitionId
	if err := utils.ValidateResourceId[MetricDefinition](ctx, clinicId, input.MetricDefinitionId); err != nil {
		return errors.New("metricDefinition not found")
	}
	// targetValue
	if !input.TargetValue.IsPositive() {
		return errors.New("target value must be greater than zero")
	}
	return nil
}

func CreateGoalTemplate(ctx context.Context, input *NewGoalTemplate) (*GoalTemplate, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, 0); err != nil {
		return nil, err
	}

	goalTemplate := GoalTemplate{
		ClinicId:           clinicId,
		Name:               input.Name,
		MetricDefinitionId: input.MetricDefinitionId,
		TimePeriod:         input.TimePeriod,
		TargetValue:        input.TargetValue,
		Description:        input.Description,
		IsActive:           utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&goalTemplate).Error
	if err != nil {
		return nil, err
	}

	return &goalTemplate, nil
}

func UpdateGoalTemplate(ctx context.Context, id int, input *NewGoalTemplate) (*GoalTemplate, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, id); err != nil {
		return nil, err
	}

	goalTemplate, err := utils.FetchModel[GoalTemplate](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&goalTemplate).Updates(map[string]interface{}{
		"Name":               input.Name,
		"MetricDefinitionId": input.MetricDefinitionId,
		"TimePeriod":         input.TimePeriod,
		"TargetValue":        input.TargetValue,
		"Description":        input.Description,
	}).Error
	if err != nil {
		return nil, err
	}

	return goalTemplate, nil
}

func DeleteGoalTemplate(ctx context.Context, id int) (*GoalTemplate, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	result, err := utils.FetchModel[GoalTemplate](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// Goals keep their template link for reporting
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Goal{}).
		Where("template_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("goal template has been used")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetGoalTemplate(ctx context.Context, id int) (*GoalTemplate, error) {

	return GetResource[GoalTemplate](ctx, id)
}

func GetGoalTemplates(ctx context.Context, name *string) ([]*GoalTemplate, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*GoalTemplate

	dbCtx := db.WithContext(ctx).Where("clinic_id = ?", clinicId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveGoalTemplate(ctx context.Context, id int, isActive bool) (*GoalTemplate, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	return ToggleActiveModel[GoalTemplate](ctx, clinicId, id, isActive)
}
