package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"gorm.io/gorm"
)

type DataSource struct {
	ID             int            `gorm:"primary_key" json:"id"`
	ClinicId       string         `gorm:"index;size:64;not null" json:"clinic_id"`
	Name           string         `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Kind           DataSourceKind `gorm:"type:enum('sheets', 'csv', 'manual');default:manual" json:"kind"`
	SpreadsheetRef string         `gorm:"size:255" json:"spreadsheet_ref"`
	LastSyncAt     *time.Time     `json:"last_sync_at"`
	LastSyncStatus SyncRunStatus  `gorm:"size:20" json:"last_sync_status"`
	IsActive       *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDataSource struct {
	Name           string         `json:"name" binding:"required"`
	Kind           DataSourceKind `json:"kind"`
	SpreadsheetRef string         `json:"spreadsheetRef"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewDataSource) validate(ctx context.Context, clinicId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[DataSource](ctx, clinicId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[DataSource](ctx, clinicId, "name", input.Name, id); err != nil {
		return err
	}
	// sheets sources must point somewhere
	if input.Kind == DataSourceKindSheets && input.SpreadsheetRef == "" {
		return errors.New("spreadsheet reference is required")
	}
	return nil
}

func CreateDataSource(ctx context.Context, input *NewDataSource) (*DataSource, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, 0); err != nil {
		return nil, err
	}

	// Defaults to satisfy MySQL enum constraints.
	// If these are empty, MySQL will error with "Data truncated for column ...".
	kind := input.Kind
	if kind == "" {
		kind = DataSourceKindManual
	}

	dataSource := DataSource{
		ClinicId:       clinicId,
		Name:           input.Name,
		Kind:           kind,
		SpreadsheetRef: input.SpreadsheetRef,
		IsActive:       utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&dataSource).Error
	if err != nil {
		return nil, err
	}

	return &dataSource, nil
}

func UpdateDataSource(ctx context.Context, id int, input *NewDataSource) (*DataSource, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, id); err != nil {
		return nil, err
	}

	dataSource, err := utils.FetchModel[DataSource](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&dataSource).Updates(map[string]interface{}{
		"Name":           input.Name,
		"Kind":           input.Kind,
		"SpreadsheetRef": input.SpreadsheetRef,
	}).Error
	if err != nil {
		return nil, err
	}

	return dataSource, nil
}

func DeleteDataSource(ctx context.Context, id int) (*DataSource, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	result, err := utils.FetchModel[DataSource](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// check if the data source is used
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&LocationFinancial{}).
		Where("data_source_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("data source has financial records")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetDataSource(ctx context.Context, id int) (*DataSource, error) {

	return GetResource[DataSource](ctx, id)
}

func GetDataSources(ctx context.Context, name *string) ([]*DataSource, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*DataSource

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

func ToggleActiveDataSource(ctx context.Context, id int, isActive bool) (*DataSource, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	return ToggleActiveModel[DataSource](ctx, clinicId, id, isActive)
}

// StampDataSourceSync records the outcome of an import on its data source
// inside the caller's transaction. Sync stamps skip the update hooks, so
// they never land in history and the caches are cleared here.
func StampDataSourceSync(ctx context.Context, tx *gorm.DB, clinicId string, id int, status SyncRunStatus, syncTime time.Time) error {

	var dataSource DataSource
	if err := tx.WithContext(ctx).Where("clinic_id = ?", clinicId).First(&dataSource, id).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	err := tx.WithContext(ctx).Model(&dataSource).UpdateColumns(map[string]interface{}{
		"LastSyncAt":     syncTime,
		"LastSyncStatus": status,
	}).Error
	if err != nil {
		return err
	}

	return RemoveRedisBoth(dataSource)
}
