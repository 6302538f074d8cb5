package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetricDefinition struct {
	ID          int        `gorm:"primary_key" json:"id"`
	ClinicId    string     `gorm:"index;size:64;not null" json:"clinic_id"`
	Code        string     `gorm:"index;size:100;not null" json:"code"`
	Name        string     `gorm:"size:100;not null" json:"name" binding:"required"`
	Unit        MetricUnit `gorm:"type:enum('currency', 'count', 'percent');default:currency" json:"unit"`
	Description string     `gorm:"type:text" json:"description"`
	IsSystem    *bool      `gorm:"not null;default:false" json:"is_system"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMetricDefinition struct {
	Code        string     `json:"code" binding:"required"`
	Name        string     `json:"name" binding:"required"`
	Unit        MetricUnit `json:"unit"`
	Description string     `json:"description"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewMetricDefinition) validate(ctx context.Context, clinicId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[MetricDefinition](ctx, clinicId, id); err != nil {
			return err
		}
	}
	// code
	if err := utils.ValidateUnique[MetricDefinition](ctx, clinicId, "code", input.Code, id); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[MetricDefinition](ctx, clinicId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateMetricDefinition(ctx context.Context, input *NewMetricDefinition) (*MetricDefinition, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, 0); err != nil {
		return nil, err
	}

	// Defaults to satisfy MySQL enum constraints.
	// If these are empty, MySQL will error with "Data truncated for column ...".
	unit := input.Unit
	if unit == "" {
		unit = MetricUnitCurrency
	}

	metricDefinition := MetricDefinition{
		ClinicId:    clinicId,
		Code:        input.Code,
		Name:        input.Name,
		Unit:        unit,
		Description: input.Description,
		IsSystem:    utils.NewFalse(),
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&metricDefinition).Error
	if err != nil {
		return nil, err
	}

	return &metricDefinition, nil
}

func UpdateMetricDefinition(ctx context.Context, id int, input *NewMetricDefinition) (*MetricDefinition, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, id); err != nil {
		return nil, err
	}

	metricDefinition, err := utils.FetchModel[MetricDefinition](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Description": input.Description,
	}

	// system definitions keep their code, name and unit
	if !*metricDefinition.IsSystem {
		updates["Code"] = input.Code
		updates["Name"] = input.Name
		updates["Unit"] = input.Unit
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&metricDefinition).Updates(updates).Error
	if err != nil {
		return nil, err
	}

	return metricDefinition, nil
}

func DeleteMetricDefinition(ctx context.Context, id int) (*MetricDefinition, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	result, err := utils.FetchModel[MetricDefinition](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	if result.IsSystem != nil && *result.IsSystem {
		return nil, errors.New("cannot delete system metric definition")
	}

	// check if the metric definition is used
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Goal{}).
		Where("metric_definition_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("metric definition has goals")
	}
	if err := db.WithContext(ctx).Model(&GoalTemplate{}).
		Where("metric_definition_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("metric definition has goal templates")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetMetricDefinition(ctx context.Context, id int) (*MetricDefinition, error) {

	return GetResource[MetricDefinition](ctx, id)
}

func GetMetricDefinitions(ctx context.Context, name *string) ([]*MetricDefinition, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*MetricDefinition

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

func ToggleActiveMetricDefinition(ctx context.Context, id int, isActive bool) (*MetricDefinition, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	return ToggleActiveModel[MetricDefinition](ctx, clinicId, id, isActive)
}

// FindOrCreateMetricDefinition looks a metric code up inside the caller's
// transaction and recreates it from the system seed list when missing.
func FindOrCreateMetricDefinition(ctx context.Context, tx *gorm.DB, clinicId, code string) (MetricDefinition, error) {
	var metricDefinition MetricDefinition
	err := tx.WithContext(ctx).Where("clinic_id = ? AND code = ?", clinicId, code).First(&metricDefinition).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return metricDefinition, fmt.Errorf("error finding metric definition: %v", err)
	}

	if err == gorm.ErrRecordNotFound {
		metricDefinition = MetricDefinition{
			ClinicId: clinicId,
			Code:     code,
			Name:     code,
			Unit:     MetricUnitCurrency,
			IsSystem: utils.NewFalse(),
			IsActive: utils.NewTrue(),
		}
		for _, seed := range GetDefaultMetricDefinitions() {
			if seed.Code == code {
				metricDefinition.Name = seed.Name
				metricDefinition.Unit = seed.Unit
				metricDefinition.Description = seed.Description
				metricDefinition.IsSystem = utils.NewTrue()
				break
			}
		}
		if err := tx.WithContext(ctx).Create(&metricDefinition).Error; err != nil {
			return metricDefinition, fmt.Errorf("could not create metric definition: %v", err)
		}
	}

	return metricDefinition, nil
}

// GetSystemMetricDefinitions maps the clinic's system metric codes to ids,
// cached under SystemMetrics:$clinicId.
func GetSystemMetricDefinitions(clinicId string) (map[string]int, error) {
	var metricDefinitions []*MetricDefinition
	var sysMetrics map[string]int

	exists, err := config.GetRedisObject("SystemMetrics:"+clinicId, &sysMetrics)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		clinicUuid, err := uuid.Parse(clinicId)
		if err != nil {
			return nil, err
		}
		if err := db.Select("id", "code").Where("clinic_id = ?", clinicUuid).Where("is_system = ?", true).Find(&metricDefinitions).Error; err != nil {
			return nil, err
		}
		sysMetrics = make(map[string]int)
		for _, def := range metricDefinitions {
			sysMetrics[def.Code] = def.ID
		}
		if err := config.SetRedisObject("SystemMetrics:"+clinicId, &sysMetrics, 0); err != nil {
			return nil, err
		}
	}
	return sysMetrics, nil
}
