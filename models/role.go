package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"gorm.io/gorm"
)

type Role struct {
	ID          int           `gorm:"primary_key" json:"id"`
	ClinicId    string        `gorm:"index;size:64;not null" json:"clinic_id" binding:"required"`
	Name        string        `gorm:"index;size:100;not null" json:"name" binding:"required"`
	RoleModules []*RoleModule `gorm:"foreignKey:RoleId"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRole struct {
	Name           string              `json:"name" binding:"required"`
	AllowedModules []*NewAllowedModule `json:"allowedModules"`
}

type NewAllowedModule struct {
	ModuleID       int    `json:"moduleId"`
	AllowedActions string `json:"allowedActions"`
}

func extractModuleActions(s string) []string {
	return strings.Split(strings.ToLower(s), ";")
}

// retrieve the role's allowed module actions, keyed "module|action".
// only actions the module itself declares count.
func GetPermissionsFromRole(ctx context.Context, roleId int) (map[string]bool, error) {
	db := config.GetDB()
	var role Role
	if err := db.WithContext(ctx).Preload("RoleModules").Preload("RoleModules.Module").Where("id = ?", roleId).First(&role).Error; err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, 0)
	for _, permission := range role.RoleModules {
		validActions := extractModuleActions(permission.Module.Actions)
		allowedActions := extractModuleActions(permission.AllowedActions)
		module := strings.ToLower(permission.Module.Name)

		for _, action := range allowedActions {
			if slices.Contains(validActions, action) {
				allowed[module+"|"+action] = true
			}
		}
	}
	return allowed, nil
}

func mapRoleModules(ctx context.Context, clinicId string, input []*NewAllowedModule) ([]*RoleModule, error) {

	availabeModuleActions := make(map[int]string, 0) // moduleId:actions
	var modules []Module
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("clinic_id = ?", clinicId).Find(&modules).Error; err != nil {
		return nil, err
	}
	for _, m := range modules {
		availabeModuleActions[m.ID] = m.Actions
	}

	var roleModules []*RoleModule
	for _, permission := range input {

		availableActionsString, ok := availabeModuleActions[permission.ModuleID]
		if !ok || availableActionsString == "" {
			return nil, errors.New("moduleId not found")
		}
		availableActions := extractModuleActions(availableActionsString)
		inputActions := extractModuleActions(permission.AllowedActions)
		for _, action := range inputActions {
			if !slices.Contains(availableActions, action) {
				return nil, errors.New("invalid module action")
			}
		}

		roleModules = append(roleModules, &RoleModule{
			ClinicId:       clinicId,
			ModuleId:       permission.ModuleID,
			AllowedActions: permission.AllowedActions,
		})
	}
	return roleModules, nil
}

func CreateRole(ctx context.Context, input *NewRole) (*Role, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	// check duplicate
	if err := utils.ValidateUnique[Role](ctx, clinicId, "name", input.Name, 0); err != nil {
		return nil, err
	}
	roleModules, err := mapRoleModules(ctx, clinicId, input.AllowedModules)
	if err != nil {
		return nil, err
	}

	role := Role{
		Name:        input.Name,
		ClinicId:    clinicId,
		RoleModules: roleModules,
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Create(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func UpdateRole(ctx context.Context, id int, input *NewRole) (*Role, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	// check role exists
	if err := utils.ValidateResourceId[Role](ctx, clinicId, id); err != nil {
		return nil, err
	}

	// check duplicate
	if err := utils.ValidateUnique[Role](ctx, clinicId, "name", input.Name, id); err != nil {
		return nil, err
	}
	roleModules, err := mapRoleModules(ctx, clinicId, input.AllowedModules)
	if err != nil {
		return nil, err
	}

	role := Role{
		ID:       id,
		ClinicId: clinicId,
		Name:     input.Name,
	}

	db := config.GetDB()
	tx := db.Begin()

	// full replace, delete excluded
	err = tx.WithContext(ctx).Model(&role).
		Session(&gorm.Session{FullSaveAssociations: true, SkipHooks: true}).
		Association("RoleModules").Unscoped().Replace(roleModules)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	err = tx.WithContext(ctx).Model(&role).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := config.RemoveRedisKey("RoleModuleList:" + fmt.Sprint(id)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.ClearPermissionsCache(id); err != nil {
		tx.Rollback()
		return nil, err
	}

	return &role, tx.Commit().Error
}

func DeleteRole(ctx context.Context, id int) (*Role, error) {

	db := config.GetDB()
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	result, err := utils.FetchModel[Role](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// don't allow if a user is using the role
	count, err := utils.ResourceCountWhere[User](ctx, clinicId, "role_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("role has been used")
	}

	tx := db.Begin()
	// delete role
	err = tx.WithContext(ctx).Select("RoleModules").Delete(&result).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// remove from redis
	if err := config.RemoveRedisKey("RoleModuleList:" + fmt.Sprint(id)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.ClearPermissionsCache(id); err != nil {
		tx.Rollback()
		return nil, err
	}
	return result, tx.Commit().Error
}

func GetRole(ctx context.Context, id int) (*Role, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	result, err := utils.FetchModel[Role](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetRoles(ctx context.Context, name *string) ([]*Role, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	results, err := utils.FetchAllModels[Role](ctx, clinicId)
	if err != nil {
		return nil, err
	}

	return results, nil
}
