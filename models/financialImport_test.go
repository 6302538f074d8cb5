package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func decodeRecords(t *testing.T, payload string) []*FinancialRecordInput {
	t.Helper()
	var records []*FinancialRecordInput
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	return records
}

func TestValidateFinancialRecords(t *testing.T) {
	records := decodeRecords(t, `[
		{"date": "2026-03-02", "locationName": "Main Clinic", "production": 5000,
		 "adjustments": "1,200", "writeOffs": 100, "patientIncome": "$1,800",
		 "insuranceIncome": 2400, "newPatients": 3, "providerName": " Dr. Reyes "},
		{"date": "03/02/2026", "locationName": "Main Clinic"},
		{"date": "2026-03-02", "locationName": "   "},
		{"date": "2026-03-02", "locationName": "Main Clinic", "production": -50},
		{"date": "2026-03-02", "locationName": "Main Clinic", "adjustments": "oops"},
		{"date": "2026-03-02", "locationName": "Main Clinic", "newPatients": 2.5},
		{"date": "2026-03-03", "locationName": "Satellite Office"}
	]`)

	valid, importErrors := ValidateFinancialRecords(records)

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid records, got %d", len(valid))
	}
	if len(importErrors) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(importErrors), importErrors)
	}

	first := valid[0]
	if first.Position != 1 {
		t.Fatalf("expected position 1, got %d", first.Position)
	}
	if first.Date.Format("2006-01-02") != "2026-03-02" {
		t.Fatalf("date parsed wrong: %v", first.Date)
	}
	if !first.Adjustments.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("formatted adjustments parsed wrong: %s", first.Adjustments)
	}
	if !first.PatientIncome.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("formatted patientIncome parsed wrong: %s", first.PatientIncome)
	}
	if first.NewPatients != 3 {
		t.Fatalf("newPatients parsed wrong: %d", first.NewPatients)
	}
	if first.ProviderName != "Dr. Reyes" {
		t.Fatalf("provider name not trimmed: %q", first.ProviderName)
	}

	// errors carry the original record position
	wantFragments := [][2]string{
		{"record 2:", "date"},
		{"record 3:", "locationName"},
		{"record 4:", "production"},
		{"record 5:", "adjustments"},
		{"record 6:", "newPatients"},
	}
	for i, want := range wantFragments {
		if !strings.Contains(importErrors[i], want[0]) || !strings.Contains(importErrors[i], want[1]) {
			t.Fatalf("error %d should mention %q and %q, got %q", i, want[0], want[1], importErrors[i])
		}
	}
}

func TestValidateFinancialRecords_AbsentAmountsDefaultToZero(t *testing.T) {
	records := decodeRecords(t, `[{"date": "2026-03-02", "locationName": "Main Clinic"}]`)

	valid, importErrors := ValidateFinancialRecords(records)
	if len(importErrors) != 0 {
		t.Fatalf("unexpected errors: %v", importErrors)
	}
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid record, got %d", len(valid))
	}

	record := valid[0]
	for name, amount := range map[string]decimal.Decimal{
		"production":      record.Production,
		"adjustments":     record.Adjustments,
		"writeOffs":       record.WriteOffs,
		"patientIncome":   record.PatientIncome,
		"insuranceIncome": record.InsuranceIncome,
		"unearned":        record.Unearned,
	} {
		if !amount.IsZero() {
			t.Fatalf("%s should default to zero, got %s", name, amount)
		}
	}
	if record.NewPatients != 0 {
		t.Fatalf("newPatients should default to zero, got %d", record.NewPatients)
	}
}

func TestBuildFinancialRow_DerivesBeforeWrite(t *testing.T) {
	location := &Location{ID: 7}
	providerID := 11
	provider := &Provider{ID: providerID}
	dataSourceID := 4

	record := &ValidFinancialRecord{
		Production:      decimal.NewFromInt(5000),
		Adjustments:     decimal.NewFromInt(300),
		WriteOffs:       decimal.NewFromInt(200),
		PatientIncome:   decimal.NewFromInt(1500),
		InsuranceIncome: decimal.NewFromInt(2500),
	}

	row := buildFinancialRow("clinic-1", record, location, provider, &dataSourceID)

	if row.LocationId != 7 {
		t.Fatalf("location id: got %d", row.LocationId)
	}
	if row.ProviderId == nil || *row.ProviderId != providerID {
		t.Fatalf("provider id not propagated: %v", row.ProviderId)
	}
	if row.DataSourceId == nil || *row.DataSourceId != dataSourceID {
		t.Fatalf("data source id not propagated: %v", row.DataSourceId)
	}
	if !row.NetProduction.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("net production not derived: %s", row.NetProduction)
	}
	if !row.TotalCollections.Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("total collections not derived: %s", row.TotalCollections)
	}

	rowNoProvider := buildFinancialRow("clinic-1", record, location, nil, nil)
	if rowNoProvider.ProviderId != nil || rowNoProvider.DataSourceId != nil {
		t.Fatalf("nil provider/source should stay nil: %+v", rowNoProvider)
	}
}

func TestImportBatch_SyncStatus(t *testing.T) {
	cases := []struct {
		name     string
		outcomes []string
		errors   int
		expected SyncRunStatus
	}{
		{name: "all written", outcomes: []string{"created", "updated"}, expected: SyncRunStatusSuccess},
		{name: "some failed", outcomes: []string{"created", "failed"}, expected: SyncRunStatusPartial},
		{name: "written with validation errors", outcomes: []string{"created"}, errors: 2, expected: SyncRunStatusPartial},
		{name: "nothing written", outcomes: []string{"failed", "failed"}, expected: SyncRunStatusFailed},
		{name: "only validation errors", outcomes: nil, errors: 3, expected: SyncRunStatusFailed},
		{name: "skips alone are fine", outcomes: []string{"skipped"}, expected: SyncRunStatusSuccess},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batch := NewImportBatch(len(tc.outcomes), false)
			for i, outcome := range tc.outcomes {
				batch.RecordOutcome(nil, i+1, "Main Clinic", outcome)
			}
			for i := 0; i < tc.errors; i++ {
				batch.AddError("record %d: boom", i+1)
			}
			if got := batch.SyncStatus(); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestImportBatch_Summary(t *testing.T) {
	batch := NewImportBatch(3, false)
	batch.SetValidCount(2)
	batch.AddError("record 3: date must be a valid YYYY-MM-DD date")
	batch.AddWarning("record 2: provider 'Dr. Nobody' not found")
	batch.RecordOutcome(&LocationFinancial{LocationId: 1}, 1, "Main Clinic", "created")
	batch.RecordOutcome(&LocationFinancial{LocationId: 1}, 2, "Main Clinic", "updated")

	summary := batch.Summary()
	if summary.Success {
		t.Fatal("summary with errors must not be success")
	}
	if summary.Validation.TotalRecords != 3 || summary.Validation.ValidRecords != 2 {
		t.Fatalf("validation counts wrong: %+v", summary.Validation)
	}
	if summary.Results == nil || summary.Results.Created != 1 || summary.Results.Updated != 1 {
		t.Fatalf("result counts wrong: %+v", summary.Results)
	}
	if len(summary.ProcessedRecords) != 2 {
		t.Fatalf("expected 2 processed previews, got %d", len(summary.ProcessedRecords))
	}

	dryRun := NewImportBatch(1, true)
	dryRun.SetValidCount(1)
	drySummary := dryRun.Summary()
	if !drySummary.Success || !drySummary.DryRun {
		t.Fatalf("dry run summary wrong: %+v", drySummary)
	}
	if drySummary.Results != nil {
		t.Fatal("dry run must not report write counts")
	}
}

func TestImportBatch_PreviewIsBounded(t *testing.T) {
	batch := NewImportBatch(20, false)
	for i := 1; i <= 20; i++ {
		batch.RecordOutcome(&LocationFinancial{LocationId: 1}, i, "Main Clinic", "created")
	}
	if len(batch.Summary().ProcessedRecords) != processedRecordPreviewLimit {
		t.Fatalf("preview should cap at %d, got %d", processedRecordPreviewLimit, len(batch.Summary().ProcessedRecords))
	}

	dryRun := NewImportBatch(20, true)
	for i := 1; i <= 20; i++ {
		dryRun.RecordOutcome(&LocationFinancial{LocationId: 1}, i, "Main Clinic", "preview")
	}
	if len(dryRun.Summary().ProcessedRecords) != dryRunPreviewLimit {
		t.Fatalf("dry run preview should cap at %d, got %d", dryRunPreviewLimit, len(dryRun.Summary().ProcessedRecords))
	}
}
