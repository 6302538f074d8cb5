package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Clinic struct {
	ID          uuid.UUID  `gorm:"primary_key" json:"id"`
	LogoUrl     string     `json:"logo_url"`
	Name        string     `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName string     `gorm:"size:100" json:"contact_name"`
	Email       string     `gorm:"size:255" json:"email"`
	Phone       string     `gorm:"size:20" json:"phone"`
	Mobile      string     `gorm:"size:20" json:"mobile"`
	Website     string     `gorm:"size:255" json:"website"`
	About       string     `gorm:"type:text" json:"about"`
	Address     string     `gorm:"type:text" json:"address"`
	Country     string     `gorm:"size:100"  json:"country"`
	City        string     `gorm:"size:100"  json:"city"`
	FiscalYear  FiscalYear `gorm:"type:enum('Jan', 'Feb', 'Mar', 'Apr', 'May', 'Jun', 'Jul', 'Aug', 'Sep', 'Oct', 'Nov', 'Dec')" json:"fiscal_year"`
	Timezone    string     `gorm:"size:50" json:"timezone"`
	// user create?
	PrimaryLocationId int       `gorm:"not null" json:"primary_location_id"`
	IsActive          *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// spreadsheet integration ID ("provider:externalId")
	IntegrationId *string `gorm:"size:255;default:NULL" json:"integration_id"`
}

type NewClinic struct {
	LogoUrl     string     `json:"logoUrl"`
	Name        string     `json:"name" binding:"required"`
	ContactName string     `json:"contactName"`
	Email       string     `json:"email" binding:"required"`
	Phone       string     `json:"phone"`
	Mobile      string     `json:"mobile"`
	Website     string     `json:"website"`
	About       string     `json:"about"`
	Address     string     `json:"address"`
	Country     string     `json:"country"`
	City        string     `json:"city"`
	FiscalYear  FiscalYear `json:"fiscalYear"`
	Timezone    string     `json:"timezone"`
}

func (clinic *Clinic) StoreRedis() error {
	return config.SetRedisObject("Clinic:"+fmt.Sprint(clinic.ID), clinic, 0)
}

func (clinic *Clinic) RemoveRedis() error {
	return config.RemoveRedisKey("Clinic:" + fmt.Sprint(clinic.ID))
}

func (clinic *Clinic) GetIntegration() (provider, id string, err error) {
	if clinic.IntegrationId != nil && *clinic.IntegrationId != "" {
		parts := strings.SplitN(*clinic.IntegrationId, ":", 2)
		if len(parts) == 2 {
			return parts[0], parts[1], nil
		}
	}
	return "", "", errors.New("disabled integration")
}

// GetSyncBootstrap assembles the reference data the sync connector needs
// to map spreadsheet rows to entity ids: the clinic plus its locations,
// providers, metric definitions and data sources, as one JSON payload.
func GetSyncBootstrap(ctx context.Context, clinicId string) (string, error) {

	data := make(map[string]interface{})
	clinic, err := GetClinicById(ctx, clinicId)
	if err != nil {
		return "", err
	}
	data["clinic"] = clinic
	ctx = utils.SetClinicIdInContext(ctx, clinic.ID.String())

	locations, _ := GetLocations(ctx, nil)
	data["locations"] = locations

	providers, _ := GetProviders(ctx, nil)
	data["providers"] = providers

	metricDefinitions, _ := GetMetricDefinitions(ctx, nil)
	data["metricDefinitions"] = metricDefinitions

	dataSources, _ := GetDataSources(ctx, nil)
	data["dataSources"] = dataSources

	jsonStr, err := utils.MarshalToJSON(data)
	if err != nil {
		return "", err
	}
	return jsonStr, nil
}

func (input *NewClinic) validate(ctx context.Context, id string) error {
	// name
	if err := utils.ValidateUnique[Clinic](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	// email
	if err := utils.ValidateUnique[Clinic](ctx, "", "email", input.Email, id); err != nil {
		return err
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
		if err := utils.ValidateUnique[Clinic](ctx, "", "phone", input.Phone, id); err != nil {
			return err
		}
	}
	// mobile
	if input.Mobile != "" {
		if err := utils.ValidatePhoneNumber(input.Mobile, utils.CountryCode); err != nil {
			return errors.New("invalid mobile number")
		}
		if err := utils.ValidateUnique[Clinic](ctx, "", "mobile", input.Mobile, id); err != nil {
			return err
		}
	}
	// website
	if input.Website != "" {
		if err := utils.ValidateUnique[Clinic](ctx, "", "website", input.Website, id); err != nil {
			return err
		}
	}

	return nil
}

func CreateClinic(ctx context.Context, input *NewClinic) (*Clinic, error) {
	// only admin have access

	// When creating a clinic,
	// - create the primary location.
	// - create the system metric definitions.
	// - create modules
	// - create 'Owner' user and 'Owner' Role
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}
	db := config.GetDB()

	tx := db.Begin()

	CID := uuid.New()
	timezone := "America/New_York"
	if input.Timezone != "" {
		timezone = input.Timezone
	}

	// Defaults to satisfy MySQL enum constraints.
	// If these are empty, MySQL will error with "Data truncated for column ...".
	fiscalYear := input.FiscalYear
	if fiscalYear == "" {
		fiscalYear = FiscalYearJan
	}

	clinic := Clinic{
		ID:          CID,
		LogoUrl:     input.LogoUrl,
		Name:        input.Name,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Mobile:      input.Mobile,
		Website:     input.Website,
		About:       input.About,
		Address:     input.Address,
		Country:     input.Country,
		City:        input.City,
		FiscalYear:  fiscalYear,
		Timezone:    timezone,
		IsActive:    utils.NewTrue(),
	}

	// create clinic
	err := tx.WithContext(ctx).Create(&clinic).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// create defaults under the new clinic's scope
	clinicId := clinic.ID.String()
	ctx = context.WithValue(ctx, utils.ContextKeyClinicId, clinicId)

	// create modules for clinic
	modules, err := CreateDefaultModules(tx, ctx, clinicId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	owner, err := CreateDefaultOwner(tx, ctx, clinicId, clinic.Email, clinic.Name)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// gives permission to owner
	for _, module := range modules {
		roleModule := RoleModule{
			ClinicId:       clinicId,
			RoleId:         owner.RoleId,
			ModuleId:       module.ID,
			AllowedActions: module.Actions,
		}
		if err := tx.WithContext(ctx).Create(&roleModule).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Create Primary Location
	locationInput := &NewLocation{
		Name: "Main Clinic",
	}
	location, err := CreateDefaultLocation(tx, ctx, locationInput, clinicId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Create system metric definitions
	if err := CreateDefaultMetricDefinitions(tx, ctx, clinicId); err != nil {
		tx.Rollback()
		return nil, err
	}

	// Update Primary Location
	err = tx.WithContext(ctx).Model(&clinic).Updates(map[string]interface{}{
		"PrimaryLocationId": location.ID,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err = tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	if err := utils.ClearRedisAdmin[Clinic](); err != nil {
		return nil, err
	}

	return &clinic, nil
}

func UpdateClinic(ctx context.Context, input *NewClinic) (*Clinic, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if err := input.validate(ctx, clinicId); err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	tx := db.Begin()
	var clinic Clinic
	if err := db.WithContext(ctx).Where("id = ?", clinicId).First(&clinic).Error; err != nil {
		return nil, err
	}

	err := tx.WithContext(ctx).Model(&clinic).Updates(map[string]interface{}{
		"LogoUrl":     input.LogoUrl,
		"Name":        input.Name,
		"ContactName": input.ContactName,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"Mobile":      input.Mobile,
		"Website":     input.Website,
		"About":       input.About,
		"Address":     input.Address,
		"Country":     input.Country,
		"City":        input.City,
		"FiscalYear":  input.FiscalYear,
		// "Timezone":    input.Timezone,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := clinic.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.ClearRedisAdmin[Clinic](); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &clinic, tx.Commit().Error
}

func ToggleActiveClinic(ctx context.Context, id uuid.UUID, isActive bool) (*Clinic, error) {

	db := config.GetDB()
	var result Clinic

	// check exists
	err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// db action
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&result).Updates(map[string]interface{}{
		"IsActive": isActive,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// toggling related users
	// db action
	err = tx.WithContext(ctx).Model(&User{}).Where("clinic_id = ?", id).Updates(map[string]interface{}{
		"IsActive": isActive,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := result.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.ClearRedisAdmin[Clinic](); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &result, tx.Commit().Error
}

func GetClinicById(ctx context.Context, id string) (*Clinic, error) {

	var result Clinic

	exists, err := config.GetRedisObject("Clinic:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

func GetClinicById2(tx *gorm.DB, id string) (*Clinic, error) {

	var result Clinic

	exists, err := config.GetRedisObject("Clinic:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		// db query
		err := tx.Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

func GetClinic(ctx context.Context) (*Clinic, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}
	return GetClinicById(ctx, clinicId)
}

func GetClinics(ctx context.Context, name *string) ([]*Clinic, error) {

	db := config.GetDB()
	var results []*Clinic

	dbCtx := db.WithContext(ctx)
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
