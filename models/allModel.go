package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// get AllModelMap for loader, redis or db
func MapAllModel[ModelT any, AllT Identifier](ctx context.Context) (map[int]*AllT, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	// retrieve from redis
	key := utils.GetTypeName[AllT]() + "Map:" + clinicId

	var allMap map[int]*AllT

	// retrieve from redis
	if exists, err := config.GetRedisObject(key, &allMap); err != nil {
		return nil, err
	} else if !exists {
		// if the map has not been cached yet
		// fetch resources and constrcut the map, cache the result

		allMap = make(map[int]*AllT)
		var allSlice []*AllT
		db := config.GetDB()
		var m ModelT
		dbCtx := db.WithContext(ctx).Model(&m)
		dbCtx.Where("clinic_id = ?", clinicId)
		if err := dbCtx.Find(&allSlice).Error; err != nil {
			return nil, err
		}

		// fill the map
		for _, allModel := range allSlice {
			allMap[(*allModel).GetId()] = allModel
		}

		// store redis
		var duration time.Duration
		if err := config.SetRedisObject(key, &allMap, duration); err != nil {
			return nil, err
		}
	}

	return allMap, nil
}

// get AllModelMap for loader, redis or db
func MapAllAdmin[ModelT any, AllT Identifier](ctx context.Context) (map[int]*AllT, error) {

	// retrieve from redis
	key := utils.GetTypeName[AllT]() + "Map"

	var allMap map[int]*AllT

	// retrieve from redis
	if exists, err := config.GetRedisObject(key, &allMap); err != nil {
		return nil, err
	} else if !exists {
		// if the map has not been cached yet
		// fetch resources and constrcut the map, cache the result

		allMap = make(map[int]*AllT)
		var allSlice []*AllT
		db := config.GetDB()
		var m ModelT
		dbCtx := db.WithContext(ctx).Model(&m)
		if err := dbCtx.Find(&allSlice).Error; err != nil {
			return nil, err
		}

		// fill the map
		for _, allModel := range allSlice {
			allMap[(*allModel).GetId()] = allModel
		}

		// store redis
		var duration time.Duration
		if err := config.SetRedisObject(key, &allMap, duration); err != nil {
			return nil, err
		}
	}

	return allMap, nil
}

// embedding struct will receive ID field, satisfy Identifier interface
type HasId struct {
	ID int `json:"id"`
}

func (h HasId) GetId() int {
	return h.ID
}

type HasUid struct {
	ID uuid.UUID `json:"id"`
}

func (h HasUid) GetId() uuid.UUID {
	return h.ID
}

type AllClinic struct {
	HasUid
	LogoUrl  string `json:"logoUrl"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	City     string `json:"city"`
}

type AllSpecialty struct {
	HasId
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type AllLocation struct {
	HasId
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
	IsActive  bool   `json:"is_active"`
}

type AllProvider struct {
	HasId
	Name        string `json:"name"`
	Code        string `json:"code"`
	SpecialtyId int    `json:"specialty_id"`
	LocationId  *int   `json:"location_id"`
	IsActive    bool   `json:"is_active"`
}

type AllMetricDefinition struct {
	HasId
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Unit     MetricUnit `json:"unit"`
	IsSystem bool       `json:"is_system"`
	IsActive bool       `json:"is_active"`
}

type AllGoalTemplate struct {
	HasId
	Name               string          `json:"name"`
	MetricDefinitionId int             `json:"metric_definition_id"`
	TimePeriod         TimePeriod      `json:"time_period"`
	TargetValue        decimal.Decimal `json:"target_value"`
	IsActive           bool            `json:"is_active"`
}

type AllDataSource struct {
	HasId
	Name     string         `json:"name"`
	Kind     DataSourceKind `json:"kind"`
	IsActive bool           `json:"is_active"`
}

type AllModule struct {
	HasId
	Name    string `json:"name"`
	Actions string `json:"actions"`
}

type AllRole struct {
	HasId
	Name string `json:"name"`
}

func ListAllClinic(ctx context.Context) ([]*AllClinic, error) {
	return ListAllAdmin[Clinic, AllClinic](ctx)
}

func ListAllSpecialty(ctx context.Context) ([]*AllSpecialty, error) {
	return ListAllAdmin[Specialty, AllSpecialty](ctx)
}

func MapAllSpecialty(ctx context.Context) (map[int]*AllSpecialty, error) {
	return MapAllAdmin[Specialty, AllSpecialty](ctx)
}

func ListAllLocation(ctx context.Context) ([]*AllLocation, error) {
	return ListAllResource[Location, AllLocation](ctx)
}

func MapAllLocation(ctx context.Context) (map[int]*AllLocation, error) {
	return MapAllModel[Location, AllLocation](ctx)
}

func ListAllProvider(ctx context.Context) ([]*AllProvider, error) {
	return ListAllResource[Provider, AllProvider](ctx)
}

func MapAllProvider(ctx context.Context) (map[int]*AllProvider, error) {
	return MapAllModel[Provider, AllProvider](ctx)
}

func ListAllMetricDefinition(ctx context.Context) ([]*AllMetricDefinition, error) {
	return ListAllResource[MetricDefinition, AllMetricDefinition](ctx)
}

func MapAllMetricDefinition(ctx context.Context) (map[int]*AllMetricDefinition, error) {
	return MapAllModel[MetricDefinition, AllMetricDefinition](ctx)
}

func ListAllGoalTemplate(ctx context.Context) ([]*AllGoalTemplate, error) {
	return ListAllResource[GoalTemplate, AllGoalTemplate](ctx)
}

func MapAllGoalTemplate(ctx context.Context) (map[int]*AllGoalTemplate, error) {
	return MapAllModel[GoalTemplate, AllGoalTemplate](ctx)
}

func ListAllDataSource(ctx context.Context) ([]*AllDataSource, error) {
	return ListAllResource[DataSource, AllDataSource](ctx)
}

func ListAllRole(ctx context.Context) ([]*AllRole, error) {
	return ListAllResource[Role, AllRole](ctx)
}

