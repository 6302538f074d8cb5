package models

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/utils"
	"gorm.io/gorm"
)

// GetDefaultModules returns the permission modules seeded for every new
// clinic, keyed by module name with semicolon separated actions.
func GetDefaultModules() map[string]string {
	const fullActions = "read;create;update;delete"
	return map[string]string{
		"Clinic":             "read;update",
		"Location":           fullActions,
		"Provider":           fullActions,
		"Specialty":          "read",
		"MetricDefinition":   fullActions,
		"GoalTemplate":       fullActions,
		"Goal":               "read;create;delete",
		"DataSource":         fullActions,
		"LocationFinancial":  "read;create;update",
		"FinancialImport":    "read;create",
		"Sync":               "read;create",
		"Image":              fullActions,
		"User":               fullActions,
		"Role":               fullActions,
		"Module":             "read",
		"History":            "read",
		"ProductionReport":   "read",
		"CollectionsReport":  "read",
		"GoalProgressReport": "read",
		"DashboardReport":    "read",
		"ReportExport":       "read",
	}
}

type defaultMetricDefinition struct {
	Code        string
	Name        string
	Unit        MetricUnit
	Description string
}

// GetDefaultMetricDefinitions returns the system metric definitions every
// clinic starts with. The import pipeline assumes these codes exist.
func GetDefaultMetricDefinitions() []defaultMetricDefinition {
	return []defaultMetricDefinition{
		{
			Code: "production",
			Name: "Production",
			Unit: MetricUnitCurrency,
		},
		{
			Code:        "collections",
			Name:        "Collections",
			Unit:        MetricUnitCurrency,
			Description: "Patient income collected at the front desk",
		},
		{
			Code:        "netProduction",
			Name:        "Net Production",
			Unit:        MetricUnitCurrency,
			Description: "Production less adjustments and write-offs",
		},
		{
			Code:        "totalCollections",
			Name:        "Total Collections",
			Unit:        MetricUnitCurrency,
			Description: "Patient income plus insurance income",
		},
		{
			Code: "newPatients",
			Name: "New Patients",
			Unit: MetricUnitCount,
		},
	}
}

func CreateDefaultModules(tx *gorm.DB, ctx context.Context, clinicId string) ([]Module, error) {

	defaultModules := GetDefaultModules()

	var modules []Module
	for k, v := range defaultModules {
		modules = append(modules, Module{
			ClinicId: clinicId,
			Name:     k,
			Actions:  v,
		})
	}

	if err := tx.WithContext(ctx).Create(&modules).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	return modules, nil
}

func CreateDefaultOwner(tx *gorm.DB, ctx context.Context, clinicId string, email string, name string) (*User, error) {

	ownerRole := Role{
		Name:     "Owner",
		ClinicId: clinicId,
	}
	if err := tx.WithContext(ctx).Create(&ownerRole).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	hashedPassword, err := utils.HashPassword("default123")
	if err != nil {
		return &User{}, err
	}

	owner := User{
		ClinicId: clinicId,
		Username: email,
		Name:     name,
		Email:    &email,
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
		RoleId:   ownerRole.ID,
		Role:     UserRoleOwner,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	return &owner, nil
}

func CreateDefaultLocation(tx *gorm.DB, ctx context.Context, input *NewLocation, clinicId string) (*Location, error) {

	location := Location{
		ClinicId:  clinicId,
		Name:      input.Name,
		IsPrimary: utils.NewTrue(),
		IsActive:  utils.NewTrue(),
	}

	if err := tx.WithContext(ctx).Create(&location).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	return &location, nil
}

func CreateDefaultMetricDefinitions(tx *gorm.DB, ctx context.Context, clinicId string) error {

	seeds := GetDefaultMetricDefinitions()

	for _, data := range seeds {
		metricDefinition := MetricDefinition{
			ClinicId:    clinicId,
			Code:        data.Code,
			Name:        data.Name,
			Unit:        data.Unit,
			Description: data.Description,
			IsSystem:    utils.NewTrue(),
			IsActive:    utils.NewTrue(),
		}

		if err := tx.WithContext(ctx).Create(&metricDefinition).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return nil
}
