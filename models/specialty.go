package models

import (
	"context"
	"errors"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
)

// Specialty is an admin managed lookup shared by every clinic.
type Specialty struct {
	ID          int    `gorm:"primary_key" json:"id"`
	Code        string `gorm:"index;size:20;not null" json:"code"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    *bool  `gorm:"not null;default:true" json:"is_active"`
}

type NewSpecialty struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type SpecialtiesEdge Edge[Specialty]

type SpecialtiesConnection struct {
	Edges    []*SpecialtiesEdge `json:"edges"`
	PageInfo *PageInfo          `json:"pageInfo"`
}

func (s Specialty) GetCursor() string {
	return s.Name
}

// validate input for both create & update. (id = 0 for create)

func (input *NewSpecialty) validate(ctx context.Context, id int) error {
	// code
	if err := utils.ValidateUnique[Specialty](ctx, "", "code", input.Code, id); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[Specialty](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateSpecialty(ctx context.Context, input *NewSpecialty) (*Specialty, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	specialty := Specialty{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&specialty).Error
	if err != nil {
		return nil, err
	}

	// caching
	if err := utils.ClearRedisAdmin[Specialty](); err != nil {
		return nil, err
	}

	return &specialty, nil
}

func UpdateSpecialty(ctx context.Context, id int, input *NewSpecialty) (*Specialty, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	var specialty Specialty
	if err := db.WithContext(ctx).First(&specialty, id).Error; err != nil {
		return nil, err
	}
	err := db.WithContext(ctx).Model(&specialty).Updates(map[string]interface{}{
		"Code":        input.Code,
		"Name":        input.Name,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}

	// caching
	if err := specialty.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	if err := utils.ClearRedisAdmin[Specialty](); err != nil {
		return nil, err
	}

	return &specialty, nil
}

func DeleteSpecialty(ctx context.Context, id int) (*Specialty, error) {

	db := config.GetDB()
	var result Specialty

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// Do not delete if any Provider uses this specialty
	var count int64
	err = db.WithContext(ctx).Model(&Provider{}).Where("specialty_id = ?", id).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by provider")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	// caching
	if err := result.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	if err := utils.ClearRedisAdmin[Specialty](); err != nil {
		return nil, err
	}

	return &result, nil
}

func GetSpecialty(ctx context.Context, id int) (*Specialty, error) {

	result, err := utils.RetrieveRedis[Specialty](id)
	if err != nil {
		return nil, err
	}

	if result == nil {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).First(&result, id).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := utils.StoreRedis[Specialty](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func GetSpecialties(ctx context.Context, name *string) ([]*Specialty, error) {

	db := config.GetDB()
	var results []*Specialty

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveSpecialty(ctx context.Context, id int, isActive bool) (*Specialty, error) {
	return ToggleActiveModel[Specialty](ctx, "", id, isActive)
}

func PaginateSpecialties(ctx context.Context, limit *int, after *string, code *string, name *string) (*SpecialtiesConnection, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Specialty{})
	if code != nil && *code != "" {
		dbCtx.Where("code = ?", *code)
	}
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	edges, pageInfo, err := FetchPagePureCursor[Specialty](dbCtx, *limit, after, "name", ">")
	if err != nil {
		return nil, err
	}
	var specialtiesConnection SpecialtiesConnection
	specialtiesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		specialtyEdge := SpecialtiesEdge(edge)
		specialtiesConnection.Edges = append(specialtiesConnection.Edges, &specialtyEdge)
	}
	return &specialtiesConnection, err
}
