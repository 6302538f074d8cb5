package models

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
)

type Provider struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ClinicId    string    `gorm:"index;size:64;not null" json:"clinic_id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Code        string    `gorm:"size:20" json:"code"`
	SpecialtyId int       `gorm:"index" json:"specialty_id"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	PhotoUrl    string    `json:"photo_url"`
	LocationId  *int      `gorm:"index" json:"location_id"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProvider struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code"`
	SpecialtyId int    `json:"specialtyId"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PhotoUrl    string `json:"photoUrl"`
	LocationId  *int   `json:"locationId"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewProvider) validate(ctx context.Context, clinicId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Provider](ctx, clinicId, id); err != nil {
			return err
		}
	}
	// code
	if len(strings.TrimSpace(input.Code)) > 0 {
		if err := utils.ValidateUnique[Provider](ctx, clinicId, "code", input.Code, id); err != nil {
			return err
		}
	}
	// email
	if len(strings.TrimSpace(input.Email)) > 0 {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	// photoUrl
	if len(strings.TrimSpace(input.PhotoUrl)) > 0 {
		if err := utils.CheckImageExistInGCS(input.PhotoUrl); err != nil {
			return errors.New("photo does not exist")
		}
	}
	// specialtyId
	if input.SpecialtyId != 0 {
		if err := utils.ValidateResourceId[Specialty](ctx, "", input.SpecialtyId); err != nil {
			return errors.New("specialty not found")
		}
	}
	// locationId
	if input.LocationId != nil {
		if err := utils.ValidateResourceId[Location](ctx, clinicId, *input.LocationId); err != nil {
			return errors.New("location not found")
		}
	}
	return nil
}

func CreateProvider(ctx context.Context, input *NewProvider) (*Provider, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, 0); err != nil {
		return nil, err
	}

	provider := Provider{
		ClinicId:    clinicId,
		Name:        input.Name,
		Code:        input.Code,
		SpecialtyId: input.SpecialtyId,
		Email:       input.Email,
		Phone:       input.Phone,
		PhotoUrl:    input.PhotoUrl,
		LocationId:  input.LocationId,
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&provider).Error
	if err != nil {
		return nil, err
	}

	return &provider, nil
}

func UpdateProvider(ctx context.Context, id int, input *NewProvider) (*Provider, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId, id); err != nil {
		return nil, err
	}

	provider, err := utils.FetchModel[Provider](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}
	oldPhotoUrl := provider.PhotoUrl

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&provider).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Code":        input.Code,
		"SpecialtyId": input.SpecialtyId,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"PhotoUrl":    input.PhotoUrl,
		"LocationId":  input.LocationId,
	}).Error
	if err != nil {
		return nil, err
	}

	if oldPhotoUrl != "" && oldPhotoUrl != input.PhotoUrl {
		removePhotoObjects(ctx, oldPhotoUrl)
	}

	return provider, nil
}

// remove photo + thumbnail from cloud
func removePhotoObjects(ctx context.Context, photoUrl string) {
	key := utils.ExtractObjectKeyFromURL(photoUrl)
	if key == "" {
		return
	}
	_ = utils.DeleteImageFromGCS(ctx, key)
	_ = utils.DeleteImageFromGCS(ctx, path.Join(path.Dir(key), "thumbnails", path.Base(key)))
}

func DeleteProvider(ctx context.Context, id int) (*Provider, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	result, err := utils.FetchModel[Provider](ctx, clinicId, id)
	if err != nil {
		return nil, err
	}

	// check if the provider is used
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Goal{}).
		Where("provider_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("provider has goals")
	}
	if err := db.WithContext(ctx).Model(&LocationFinancial{}).
		Where("provider_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("provider has financial records")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	if result.PhotoUrl != "" {
		removePhotoObjects(ctx, result.PhotoUrl)
	}

	return result, nil
}

func GetProvider(ctx context.Context, id int) (*Provider, error) {

	return GetResource[Provider](ctx, id)
}

func GetProviders(ctx context.Context, name *string) ([]*Provider, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*Provider

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

func ToggleActiveProvider(ctx context.Context, id int, isActive bool) (*Provider, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	return ToggleActiveModel[Provider](ctx, clinicId, id, isActive)
}
