package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LocationFinancial holds one day of production and collection figures for
// a location. At most one row exists per (clinic, location, record date);
// imports update the row in place and never delete it.
type LocationFinancial struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ClinicId         string          `gorm:"size:64;not null;uniqueIndex:uq_location_financials,priority:1" json:"clinic_id"`
	LocationId       int             `gorm:"not null;uniqueIndex:uq_location_financials,priority:2" json:"location_id"`
	RecordDate       time.Time       `gorm:"type:date;not null;uniqueIndex:uq_location_financials,priority:3;index" json:"record_date"`
	Production       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"production"`
	Adjustments      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"adjustments"`
	WriteOffs        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"write_offs"`
	NetProduction    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_production"`
	PatientIncome    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"patient_income"`
	InsuranceIncome  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"insurance_income"`
	TotalCollections decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_collections"`
	Unearned         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unearned"`
	NewPatients      int             `gorm:"default:0" json:"new_patients"`
	ProviderId       *int            `gorm:"index" json:"provider_id"`
	DataSourceId     *int            `gorm:"index" json:"data_source_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ComputeDerivedFields recalculates the two derived columns from their
// inputs. Call before every write; stored values are never trusted.
func (record *LocationFinancial) ComputeDerivedFields() {
	record.NetProduction = record.Production.Sub(record.Adjustments).Sub(record.WriteOffs)
	record.TotalCollections = record.PatientIncome.Add(record.InsuranceIncome)
}

// UpsertLocationFinancial writes one financial row with a single
// conditional statement. The outcome comes from the storage signal:
// MySQL reports one affected row for a fresh insert, two for an update
// (zero when the values are already identical).
func UpsertLocationFinancial(tx *gorm.DB, record *LocationFinancial) (string, error) {

	record.ComputeDerivedFields()

	result := tx.Exec(`
        INSERT INTO location_financials (clinic_id, location_id, record_date,
            production, adjustments, write_offs, net_production,
            patient_income, insurance_income, total_collections, unearned,
            new_patients, provider_id, data_source_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
        ON DUPLICATE KEY UPDATE
            production = VALUES(production),
            adjustments = VALUES(adjustments),
            write_offs = VALUES(write_offs),
            net_production = VALUES(net_production),
            patient_income = VALUES(patient_income),
            insurance_income = VALUES(insurance_income),
            total_collections = VALUES(total_collections),
            unearned = VALUES(unearned),
            new_patients = VALUES(new_patients),
            provider_id = VALUES(provider_id),
            data_source_id = VALUES(data_source_id),
            updated_at = NOW()
    `, record.ClinicId, record.LocationId, record.RecordDate,
		record.Production, record.Adjustments, record.WriteOffs, record.NetProduction,
		record.PatientIncome, record.InsuranceIncome, record.TotalCollections, record.Unearned,
		record.NewPatients, record.ProviderId, record.DataSourceId)

	if result.Error != nil {
		return "", result.Error
	}

	if result.RowsAffected == 1 {
		return "created", nil
	}
	return "updated", nil
}

// ExistsLocationFinancial reports whether a row already occupies the key.
func ExistsLocationFinancial(tx *gorm.DB, clinicId string, locationId int, recordDate time.Time) (bool, error) {
	var count int64
	err := tx.Model(&LocationFinancial{}).
		Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicId, locationId, recordDate).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertLocationFinancial writes one financial row without touching an
// existing one (the upsert=false path).
func InsertLocationFinancial(tx *gorm.DB, record *LocationFinancial) error {
	record.ComputeDerivedFields()
	return tx.Create(record).Error
}

type LocationFinancialFilter struct {
	LocationId *int
	FromDate   *string
	ToDate     *string
	Limit      *int
	Offset     *int
}

func GetLocationFinancials(ctx context.Context, filter *LocationFinancialFilter) ([]*LocationFinancial, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var results []*LocationFinancial

	dbCtx := db.WithContext(ctx).Where("clinic_id = ?", clinicId)

	if filter != nil {
		if filter.LocationId != nil && *filter.LocationId > 0 {
			if err := utils.ValidateResourceId[Location](ctx, clinicId, *filter.LocationId); err != nil {
				return nil, errors.New("location not found")
			}
			dbCtx = dbCtx.Where("location_id = ?", *filter.LocationId)
		}
		if filter.FromDate != nil && *filter.FromDate != "" {
			from, err := ParseDateString(*filter.FromDate)
			if err != nil {
				return nil, err
			}
			dbCtx = dbCtx.Where("record_date >= ?", from)
		}
		if filter.ToDate != nil && *filter.ToDate != "" {
			to, err := ParseDateString(*filter.ToDate)
			if err != nil {
				return nil, err
			}
			dbCtx = dbCtx.Where("record_date <= ?", to)
		}
	}

	limit := 50
	if filter != nil && filter.Limit != nil && *filter.Limit > 0 && *filter.Limit <= 500 {
		limit = *filter.Limit
	}
	offset := 0
	if filter != nil && filter.Offset != nil && *filter.Offset > 0 {
		offset = *filter.Offset
	}

	// db query
	err := dbCtx.Order("record_date DESC, location_id").
		Limit(limit).Offset(offset).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetLocationFinancialByKey(ctx context.Context, locationId int, recordDate time.Time) (*LocationFinancial, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var result LocationFinancial
	err := db.WithContext(ctx).
		Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicId, locationId, recordDate).
		First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}
