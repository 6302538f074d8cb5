package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialRecordInput is one submitted row of daily figures. Amount
// fields tolerate numbers and formatted strings; a bad value is reported
// against the record's position instead of failing the whole payload.
type FinancialRecordInput struct {
	Date            string            `json:"date"`
	LocationName    string            `json:"locationName"`
	Production      utils.FlexDecimal `json:"production"`
	Adjustments     utils.FlexDecimal `json:"adjustments"`
	WriteOffs       utils.FlexDecimal `json:"writeOffs"`
	PatientIncome   utils.FlexDecimal `json:"patientIncome"`
	InsuranceIncome utils.FlexDecimal `json:"insuranceIncome"`
	Unearned        utils.FlexDecimal `json:"unearned"`
	NewPatients     utils.FlexDecimal `json:"newPatients"`
	ProviderName    string            `json:"providerName"`
}

type NewFinancialImport struct {
	ClinicId     string                  `json:"clinicId"`
	DataSourceId *int                    `json:"dataSourceId"`
	Records      []*FinancialRecordInput `json:"records"`
	Upsert       *bool                   `json:"upsert"`
	DryRun       bool                    `json:"dryRun"`
}

// ValidFinancialRecord is a record that passed validation: parsed date,
// clean decimals, original batch position for reporting.
type ValidFinancialRecord struct {
	Position        int
	Date            time.Time
	LocationName    string
	ProviderName    string
	Production      decimal.Decimal
	Adjustments     decimal.Decimal
	WriteOffs       decimal.Decimal
	PatientIncome   decimal.Decimal
	InsuranceIncome decimal.Decimal
	Unearned        decimal.Decimal
	NewPatients     int
}

// checkAmount enforces per-field parse rules. Fields absent from the
// payload fall back to zero.
func checkAmount(value utils.FlexDecimal, position int, fieldName string) (decimal.Decimal, error) {
	if !value.Present {
		return decimal.Zero, nil
	}
	if !value.Valid {
		return decimal.Zero, fmt.Errorf("record %d: %s must be a number", position, fieldName)
	}
	return value.Value, nil
}

// ValidateFinancialRecords runs the pure validation pass. Failed records
// are dropped with a position-tagged error; valid ones come back parsed.
// No storage access happens here.
func ValidateFinancialRecords(records []*FinancialRecordInput) ([]*ValidFinancialRecord, []string) {

	validRecords := make([]*ValidFinancialRecord, 0, len(records))
	importErrors := make([]string, 0)

	for idx, record := range records {
		position := idx + 1
		if record == nil {
			importErrors = append(importErrors, fmt.Sprintf("record %d: empty record", position))
			continue
		}

		recordDate, err := ParseDateString(record.Date)
		if err != nil {
			importErrors = append(importErrors, fmt.Sprintf("record %d: date must be a valid YYYY-MM-DD date", position))
			continue
		}

		locationName := strings.TrimSpace(record.LocationName)
		if locationName == "" {
			importErrors = append(importErrors, fmt.Sprintf("record %d: locationName is required", position))
			continue
		}

		// production must be a non-negative amount
		if record.Production.Present && (!record.Production.Valid || record.Production.Value.IsNegative()) {
			importErrors = append(importErrors, fmt.Sprintf("record %d: production must be a non-negative number", position))
			continue
		}

		adjustments, err := checkAmount(record.Adjustments, position, "adjustments")
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		writeOffs, err := checkAmount(record.WriteOffs, position, "writeOffs")
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		patientIncome, err := checkAmount(record.PatientIncome, position, "patientIncome")
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		insuranceIncome, err := checkAmount(record.InsuranceIncome, position, "insuranceIncome")
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		unearned, err := checkAmount(record.Unearned, position, "unearned")
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}

		newPatients := 0
		if record.NewPatients.Present {
			value := record.NewPatients.Value
			if !record.NewPatients.Valid || value.IsNegative() || !value.Equal(value.Truncate(0)) {
				importErrors = append(importErrors, fmt.Sprintf("record %d: newPatients must be a non-negative whole number", position))
				continue
			}
			newPatients = int(value.IntPart())
		}

		validRecords = append(validRecords, &ValidFinancialRecord{
			Position:        position,
			Date:            recordDate,
			LocationName:    locationName,
			ProviderName:    strings.TrimSpace(record.ProviderName),
			Production:      record.Production.Decimal(),
			Adjustments:     adjustments,
			WriteOffs:       writeOffs,
			PatientIncome:   patientIncome,
			InsuranceIncome: insuranceIncome,
			Unearned:        unearned,
			NewPatients:     newPatients,
		})
	}

	return validRecords, importErrors
}

// recordResolver maps submitted names to rows. Lookups are trimmed and
// case-insensitive, cached for the life of the batch so each distinct
// name hits storage once.
type recordResolver struct {
	tx        *gorm.DB
	clinicId  string
	locations map[string]*Location
	providers map[string]*Provider
}

func newRecordResolver(tx *gorm.DB, clinicId string) *recordResolver {
	return &recordResolver{
		tx:        tx,
		clinicId:  clinicId,
		locations: make(map[string]*Location),
		providers: make(map[string]*Provider),
	}
}

// resolveLocation returns nil without error when no location matches.
func (r *recordResolver) resolveLocation(ctx context.Context, name string) (*Location, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := r.locations[key]; ok {
		return cached, nil
	}

	var location Location
	err := r.tx.WithContext(ctx).
		Where("clinic_id = ? AND LOWER(name) = ?", r.clinicId, key).
		First(&location).Error
	if err == gorm.ErrRecordNotFound {
		r.locations[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.locations[key] = &location
	return &location, nil
}

// resolveProvider follows the same contract as resolveLocation.
func (r *recordResolver) resolveProvider(ctx context.Context, name string) (*Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := r.providers[key]; ok {
		return cached, nil
	}

	var provider Provider
	err := r.tx.WithContext(ctx).
		Where("clinic_id = ? AND LOWER(name) = ?", r.clinicId, key).
		First(&provider).Error
	if err == gorm.ErrRecordNotFound {
		r.providers[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.providers[key] = &provider
	return &provider, nil
}

/* batch reporter */

const processedRecordPreviewLimit = 10
const dryRunPreviewLimit = 5

type ImportValidationSummary struct {
	TotalRecords int `json:"totalRecords"`
	ValidRecords int `json:"validRecords"`
	Errors       int `json:"errors"`
	Warnings     int `json:"warnings"`
}

type ImportResultCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type ProcessedFinancialRecord struct {
	Position         int             `json:"position"`
	Date             string          `json:"date"`
	LocationId       int             `json:"locationId"`
	LocationName     string          `json:"locationName"`
	Outcome          string          `json:"outcome"`
	NetProduction    decimal.Decimal `json:"netProduction"`
	TotalCollections decimal.Decimal `json:"totalCollections"`
}

type FinancialImportSummary struct {
	Success          bool                        `json:"success"`
	DryRun           bool                        `json:"dryRun,omitempty"`
	FileName         string                      `json:"fileName,omitempty"`
	Validation       ImportValidationSummary     `json:"validation"`
	Errors           []string                    `json:"errors"`
	Warnings         []string                    `json:"warnings"`
	Results          *ImportResultCounts         `json:"results,omitempty"`
	ProcessedRecords []*ProcessedFinancialRecord `json:"processedRecords,omitempty"`
}

// ImportBatch accumulates one request's outcomes. It lives for a single
// batch and is discarded with the response; nothing here is persisted.
type ImportBatch struct {
	dryRun       bool
	totalRecords int
	validRecords int
	errors       []string
	warnings     []string
	counts       ImportResultCounts
	processed    []*ProcessedFinancialRecord
	previewLimit int
}

func NewImportBatch(totalRecords int, dryRun bool) *ImportBatch {
	limit := processedRecordPreviewLimit
	if dryRun {
		limit = dryRunPreviewLimit
	}
	return &ImportBatch{
		dryRun:       dryRun,
		totalRecords: totalRecords,
		errors:       make([]string, 0),
		warnings:     make([]string, 0),
		previewLimit: limit,
	}
}

func (batch *ImportBatch) AddError(format string, args ...interface{}) {
	batch.errors = append(batch.errors, fmt.Sprintf(format, args...))
}

func (batch *ImportBatch) AddWarning(format string, args ...interface{}) {
	batch.warnings = append(batch.warnings, fmt.Sprintf(format, args...))
}

func (batch *ImportBatch) SetValidCount(count int) {
	batch.validRecords = count
}

// RecordOutcome tallies one record and keeps a bounded preview of the
// rows that went through.
func (batch *ImportBatch) RecordOutcome(record *LocationFinancial, position int, locationName string, outcome string) {
	switch outcome {
	case "created":
		batch.counts.Created++
	case "updated":
		batch.counts.Updated++
	case "skipped":
		batch.counts.Skipped++
	case "failed":
		batch.counts.Failed++
	}

	if len(batch.processed) >= batch.previewLimit {
		return
	}
	processed := &ProcessedFinancialRecord{
		Position:     position,
		LocationName: locationName,
		Outcome:      outcome,
	}
	if record != nil {
		processed.Date = record.RecordDate.Format("2006-01-02")
		processed.LocationId = record.LocationId
		processed.NetProduction = record.NetProduction
		processed.TotalCollections = record.TotalCollections
	}
	batch.processed = append(batch.processed, processed)
}

func (batch *ImportBatch) Counts() ImportResultCounts {
	return batch.counts
}

// SyncStatus classifies the batch for the data source stamp.
func (batch *ImportBatch) SyncStatus() SyncRunStatus {
	written := batch.counts.Created + batch.counts.Updated
	troubled := batch.counts.Failed + len(batch.errors)
	if written == 0 && troubled > 0 {
		return SyncRunStatusFailed
	}
	if troubled > 0 {
		return SyncRunStatusPartial
	}
	return SyncRunStatusSuccess
}

func (batch *ImportBatch) Summary() *FinancialImportSummary {
	summary := &FinancialImportSummary{
		Success: len(batch.errors) == 0,
		DryRun:  batch.dryRun,
		Validation: ImportValidationSummary{
			TotalRecords: batch.totalRecords,
			ValidRecords: batch.validRecords,
			Errors:       len(batch.errors),
			Warnings:     len(batch.warnings),
		},
		Errors:           batch.errors,
		Warnings:         batch.warnings,
		ProcessedRecords: batch.processed,
	}
	if !batch.dryRun {
		counts := batch.counts
		summary.Results = &counts
	}
	return summary
}

/* orchestration */

// buildFinancialRow assembles the storage row for one validated record.
func buildFinancialRow(clinicId string, record *ValidFinancialRecord, location *Location, provider *Provider, dataSourceId *int) *LocationFinancial {
	row := &LocationFinancial{
		ClinicId:        clinicId,
		LocationId:      location.ID,
		RecordDate:      record.Date,
		Production:      record.Production,
		Adjustments:     record.Adjustments,
		WriteOffs:       record.WriteOffs,
		PatientIncome:   record.PatientIncome,
		InsuranceIncome: record.InsuranceIncome,
		Unearned:        record.Unearned,
		NewPatients:     record.NewPatients,
		DataSourceId:    dataSourceId,
	}
	if provider != nil {
		row.ProviderId = &provider.ID
	}
	row.ComputeDerivedFields()
	return row
}

// resolveRecord runs name resolution for one record. A missing location
// rejects the record; a missing provider only drops the attribution.
func resolveRecord(ctx context.Context, resolver *recordResolver, record *ValidFinancialRecord, batch *ImportBatch) (*Location, *Provider, bool, error) {

	location, err := resolver.resolveLocation(ctx, record.LocationName)
	if err != nil {
		return nil, nil, false, err
	}
	if location == nil {
		batch.AddError("record %d: location '%s' not found", record.Position, record.LocationName)
		batch.RecordOutcome(nil, record.Position, record.LocationName, "failed")
		return nil, nil, false, nil
	}
	if location.IsActive != nil && !*location.IsActive {
		batch.AddWarning("record %d: location '%s' is inactive", record.Position, record.LocationName)
	}

	var provider *Provider
	if record.ProviderName != "" {
		provider, err = resolver.resolveProvider(ctx, record.ProviderName)
		if err != nil {
			return nil, nil, false, err
		}
		if provider == nil {
			batch.AddWarning("record %d: provider '%s' not found", record.Position, record.ProviderName)
		}
	}

	return location, provider, true, nil
}

// ImportFinancialRecords runs one import batch end to end: validation,
// name resolution, the conditional writes, the data source stamp and the
// outbox event. The whole non-dry-run batch shares one transaction; a
// statement failure on a single record is counted and skipped, while a
// batch-level failure rolls everything back.
func ImportFinancialRecords(ctx context.Context, input *NewFinancialImport) (*FinancialImportSummary, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, utils.NewValidationError("clinic id is required")
	}
	// an explicit clinic id must match the authenticated one
	if input.ClinicId != "" && input.ClinicId != clinicId {
		return nil, utils.NewAccessDeniedError("cannot import records for another clinic")
	}

	batch := NewImportBatch(len(input.Records), input.DryRun)

	validRecords, validationErrors := ValidateFinancialRecords(input.Records)
	for _, message := range validationErrors {
		batch.AddError("%s", message)
	}
	batch.SetValidCount(len(validRecords))

	if input.DataSourceId != nil {
		if err := utils.ValidateResourceId[DataSource](ctx, clinicId, *input.DataSourceId); err != nil {
			return nil, utils.NewNotFoundError("dataSource not found")
		}
	}

	upsert := true
	if input.Upsert != nil {
		upsert = *input.Upsert
	}

	db := config.GetDB()

	if input.DryRun {
		resolver := newRecordResolver(db, clinicId)
		for _, record := range validRecords {
			location, provider, resolved, err := resolveRecord(ctx, resolver, record, batch)
			if err != nil {
				return nil, err
			}
			if !resolved {
				continue
			}
			row := buildFinancialRow(clinicId, record, location, provider, input.DataSourceId)
			batch.RecordOutcome(row, record.Position, record.LocationName, "preview")
		}
		return batch.Summary(), nil
	}

	// one import per clinic at a time
	if err := utils.ClinicLock(ctx, clinicId, "lock", "financialImport.go", "ImportFinancialRecords"); err != nil {
		return nil, err
	}

	logger := config.GetLogger()
	tx := db.Begin()

	// the goal progress reports bind on these codes
	for _, seed := range GetDefaultMetricDefinitions() {
		if _, err := FindOrCreateMetricDefinition(ctx, tx, clinicId, seed.Code); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	resolver := newRecordResolver(tx, clinicId)
	for _, record := range validRecords {
		location, provider, resolved, err := resolveRecord(ctx, resolver, record, batch)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !resolved {
			continue
		}

		row := buildFinancialRow(clinicId, record, location, provider, input.DataSourceId)

		if !upsert {
			exists, err := ExistsLocationFinancial(tx, clinicId, location.ID, record.Date)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if exists {
				batch.AddWarning("record %d: row for '%s' on %s already exists, skipped",
					record.Position, record.LocationName, record.Date.Format("2006-01-02"))
				batch.RecordOutcome(row, record.Position, record.LocationName, "skipped")
				continue
			}
			if err := InsertLocationFinancial(tx, row); err != nil {
				config.LogError(logger, "financialImport.go", "ImportFinancialRecords", "InsertLocationFinancial", record.Position, err)
				batch.AddError("record %d: %v", record.Position, err)
				batch.RecordOutcome(row, record.Position, record.LocationName, "failed")
				continue
			}
			batch.RecordOutcome(row, record.Position, record.LocationName, "created")
			continue
		}

		outcome, err := UpsertLocationFinancial(tx, row)
		if err != nil {
			config.LogError(logger, "financialImport.go", "ImportFinancialRecords", "UpsertLocationFinancial", record.Position, err)
			batch.AddError("record %d: %v", record.Position, err)
			batch.RecordOutcome(row, record.Position, record.LocationName, "failed")
			continue
		}
		batch.RecordOutcome(row, record.Position, record.LocationName, outcome)
	}

	counts := batch.Counts()
	written := counts.Created + counts.Updated

	if input.DataSourceId != nil {
		if err := StampDataSourceSync(ctx, tx, clinicId, *input.DataSourceId, batch.SyncStatus(), time.Now().UTC()); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if written > 0 {
		referenceId := 0
		if input.DataSourceId != nil {
			referenceId = *input.DataSourceId
		}
		summary := batch.Summary()
		err := PublishToSync(ctx, tx, clinicId, time.Now().UTC(), referenceId,
			SyncReferenceTypeImportBatch, summary, nil, PubSubMessageActionCreate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	return batch.Summary(), nil
}
