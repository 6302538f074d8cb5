package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
)

// Goal is immutable once created. Changing a target means deleting the
// goal and creating a new one, so progress reports never drift under a
// rewritten target.
type Goal struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ClinicId           string          `gorm:"index;size:64;not null" json:"clinic_id"`
	MetricDefinitionId int             `gorm:"index;not null" json:"metric_definition_id"`
	ProviderId         *int            `gorm:"index" json:"provider_id"`
	LocationId         *int            `gorm:"index" json:"location_id"`
	TimePeriod         TimePeriod      `gorm:"type:enum('daily', 'weekly', 'monthly', 'quarterly', 'yearly');default:monthly" json:"time_period"`
	StartDate          time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate            time.Time       `gorm:"type:date;not null" json:"end_date"`
	TargetValue        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"target_value"`
	TemplateId         *int            `gorm:"index" json:"template_id"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CreatedBy          string          `gorm:"size:100" json:"created_by"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewGoal carries both goal creation shapes. Which fields are required
// depends on the selected strategy, so none of them carry binding tags.
type NewGoal struct {
	Mode               GoalMode        `json:"mode"`
	TemplateId         *int            `json:"templateId"`
	MetricDefinitionId int             `json:"metricDefinitionId"`
	TimePeriod         TimePeriod      `json:"timePeriod"`
	StartDate          string          `json:"startDate"`
	EndDate            string          `json:"endDate"`
	TargetValue        decimal.Decimal `json:"targetValue"`
	ProviderId         *int            `json:"providerId"`
	LocationId         *int            `json:"locationId"`
	Notes              string          `json:"notes"`
}

type GoalCreateResult struct {
	Goal     *Goal    `json:"goal"`
	Warnings []string `json:"warnings,omitempty"`
}

func GetGoal(ctx context.Context, id int) (*Goal, error) {

	return GetResource[Goal](ctx, id)
}

func GetGoals(ctx context.Context, metricDefinitionId *int, locationId *int, providerId *int, timePeriod *TimePeriod) ([]*Goal, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*Goal

	dbCtx := db.WithContext(ctx).Where("clinic_id = ?", clinicId)
	if metricDefinitionId != nil && *metricDefinitionId > 0 {
		dbCtx = dbCtx.Where("metric_definition_id = ?", *metricDefinitionId)
	}
	if locationId != nil && *locationId > 0 {
		dbCtx = dbCtx.Where("location_id = ?", *locationId)
	}
	if providerId != nil && *providerId > 0 {
		dbCtx = dbCtx.Where("provider_id = ?", *providerId)
	}
	if timePeriod != nil && len(*timePeriod) > 0 {
		dbCtx = dbCtx.Where("time_period = ?", *timePeriod)
	}
	// db query
	err := dbCtx.Order("start_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteGoal(ctx context.Context, id int) (*Goal, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	result, err := utils.FetchModel[Goal](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	// db action
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "DELETE", id, "goals", result, nil, "deleted goal"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}

	return result, nil
}
