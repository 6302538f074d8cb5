package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
)

type Module struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ClinicId  string    `gorm:"index;size:64;not null" json:"clinic_id" binding:"required"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Actions   string    `gorm:"not null" json:"action" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewModule struct {
	Name     string `json:"name" binding:"required"`
	ClinicId string `json:"clinicId"`
	Actions  string `json:"action" binding:"required"`
}

/*
cache
	AllModuleList:$clinicId
*/

// get ids of roles related to this module / have access
func (module *Module) getRelatedRoleIds(ctx context.Context) ([]int, error) {
	var roleIds []int
	db := config.GetDB()

	err := db.WithContext(ctx).Model(&RoleModule{}).Select("role_id").
		Where("clinic_id = ? AND module_id = ?", module.ClinicId, module.ID).Scan(&roleIds).Error
	if err != nil {
		return nil, err
	}
	return roleIds, nil
}

func (input *NewModule) validate(ctx context.Context, id int) error {
	if id == 0 {
		// if module is to be created
		// check clinicId exists
		if err := utils.ValidateResourceId[Clinic](ctx, "", input.ClinicId); err != nil {
			return errors.New("clinic not found")
		}
	}
	// name
	if err := utils.ValidateUnique[Module](ctx, input.ClinicId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

// <admin>
func CreateModule(ctx context.Context, input *NewModule) (*Module, error) {

	db := config.GetDB()

	// validate module name
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	module := Module{
		Name:     input.Name,
		ClinicId: input.ClinicId,
		Actions:  input.Actions,
	}

	// create module
	tx := db.Begin()
	err := tx.WithContext(ctx).Create(&module).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := module.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}

	return &module, tx.Commit().Error
}

// <admin>
func UpdateModule(ctx context.Context, id int, input *NewModule) (*Module, error) {

	db := config.GetDB()
	// check exists
	var count int64
	if err := db.WithContext(ctx).Model(&Module{}).
		Where("clinic_id = ? AND id = ?", input.ClinicId, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, utils.ErrorRecordNotFound
	}

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	module := Module{
		ID:       id,
		ClinicId: input.ClinicId,
		Name:     input.Name,
		Actions:  input.Actions,
	}

	// update the module
	tx := db.Begin()
	err := tx.WithContext(ctx).Model(&module).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Actions": input.Actions,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := RemoveRedisBoth(module); err != nil {
		tx.Rollback()
		return nil, err
	}
	// get role ids related to / have access to module
	roleIds, err := module.getRelatedRoleIds(ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// remove from redis
	for _, roleId := range roleIds {
		if err := utils.ClearPermissionsCache(roleId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	return &module, tx.Commit().Error
}

// <admin>
func DeleteModule(ctx context.Context, id int) (*Module, error) {

	db := config.GetDB()
	var result Module

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// delete module
	tx := db.Begin()
	err = tx.WithContext(ctx).Delete(&result).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// get related role ids
	roleIds, err := result.getRelatedRoleIds(ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Delete role module
	err = tx.WithContext(ctx).Where("clinic_id = ? AND module_id = ?", result.ClinicId, id).Delete(&RoleModule{}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// remove from redis
	if err := RemoveRedisBoth(result); err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, roleId := range roleIds {
		if err := utils.ClearPermissionsCache(roleId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	return &result, tx.Commit().Error
}

func GetModule(ctx context.Context, id int) (*Module, error) {

	db := config.GetDB()
	var result Module

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

type BaseModule struct {
	BaseModuleName string       `json:"baseModuleName"`
	Modules        []*AllModule `json:"modules,omitempty"`
}

// GetModules groups the clinic's permission modules under the base
// categories the settings screen renders.
func GetModules(ctx context.Context, name *string) ([]*BaseModule, error) {

	allModules, err := ListAllResource[Module, AllModule](ctx, "name")
	if err != nil {
		return nil, err
	}

	// constructs BaseModule[]
	const (
		OthersModule int = iota
		DashboardModule
		FileUploadModule
		PracticeModule
		MetricsModule
		DataImportModule
		SettingsModule
		Report_Performance
		Report_Goals
		Report_Export
	)
	results := []*BaseModule{
		{
			BaseModuleName: "Others",
		},
		{
			BaseModuleName: "Dashboard",
		},
		{
			BaseModuleName: "FileUpload",
		},
		{
			BaseModuleName: "Practice",
		},
		{
			BaseModuleName: "Metrics",
		},
		{
			BaseModuleName: "DataImport",
		},
		{
			BaseModuleName: "Settings",
		},
		{
			BaseModuleName: "Reports:Performance",
		},
		{
			BaseModuleName: "Reports:Goals",
		},
		{
			BaseModuleName: "Reports:Export",
		},
	}

	moduleNameToBase := map[string]int{
		"History":            OthersModule,
		"Module":             OthersModule,
		"Specialty":          OthersModule,
		"DashboardReport":    DashboardModule,
		"Image":              FileUploadModule,
		"Attachment":         FileUploadModule,
		"File":               FileUploadModule,
		"Location":           PracticeModule,
		"Provider":           PracticeModule,
		"MetricDefinition":   MetricsModule,
		"GoalTemplate":       MetricsModule,
		"Goal":               MetricsModule,
		"DataSource":         DataImportModule,
		"FinancialImport":    DataImportModule,
		"LocationFinancial":  DataImportModule,
		"Clinic":             SettingsModule,
		"User":               SettingsModule,
		"Role":               SettingsModule,
		"RoleModule":         SettingsModule,
		"ProductionReport":   Report_Performance,
		"CollectionsReport":  Report_Performance,
		"GoalProgressReport": Report_Goals,
		"ReportExport":       Report_Export,
	}

	for _, module := range allModules {
		i := moduleNameToBase[utils.UppercaseFirst(module.Name)] // i is 0 (OthersModule) if not found in map
		results[i].Modules = append(results[i].Modules, module)
	}

	return results, nil
}
