package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/xuri/excelize/v2"
)

// financialImportHeader is the first row an import workbook must carry,
// in column order.
var financialImportHeader = []string{
	"Date",
	"Location",
	"Production",
	"Adjustments",
	"Write Offs",
	"Patient Income",
	"Insurance Income",
	"Unearned",
	"New Patients",
	"Provider",
}

func uploadImportFile(ctx context.Context, fileName string, file io.Reader) (string, error) {
	objectName := "importFinancials/" + fileName
	err := utils.UploadFileToGCS(ctx, objectName, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload file to storage provider: %v", err)
	}
	return utils.BuildObjectAccessURL(objectName), nil
}

func readExcelFileFromURL(fileURL string) (*excelize.File, error) {
	// Download file content from the given URL
	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: received status code %d", resp.StatusCode)
	}

	// Create an Excel reader
	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}

	return f, nil
}

func validateImportHeader(row []string) error {
	if len(row) < len(financialImportHeader) {
		return fmt.Errorf("invalid header: expected %d columns, got %d", len(financialImportHeader), len(row))
	}
	for i, want := range financialImportHeader {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return fmt.Errorf("invalid header: column %d must be %q", i+1, want)
		}
	}
	return nil
}

// GetRows drops trailing empty cells, so every access is bounds-checked.
func textCell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func flexCell(row []string, idx int) utils.FlexDecimal {
	cell := textCell(row, idx)
	if cell == "" {
		return utils.FlexDecimal{}
	}
	value := utils.FlexDecimal{Present: true, Raw: cell}
	parsed, err := utils.ParseFlexDecimal(cell)
	if err != nil {
		return value
	}
	value.Value = parsed
	value.Valid = true
	return value
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportFinancialsFromXlsx ingests a workbook through the same batch
// pipeline as the JSON import. The file is archived to cloud storage
// before parsing so a failed import stays reproducible.
func ImportFinancialsFromXlsx(ctx context.Context, filename string, file io.Reader, dataSourceId *int, upsert *bool, dryRun bool) (*FinancialImportSummary, error) {
	if file == nil {
		return nil, errors.New("nil file provided")
	}

	if !strings.HasSuffix(filename, ".xlsx") {
		return nil, utils.NewValidationError("invalid file type: only .xlsx files are allowed")
	}

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, utils.NewValidationError("clinic id is required")
	}

	uniqueFilename := clinicId + "_" + utils.GenerateUniqueFilename() + "_*.xlsx"

	fileURL, err := uploadImportFile(ctx, uniqueFilename, file)
	if err != nil {
		return nil, err
	}

	f, err := readExcelFileFromURL(fileURL)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}

	if len(rows) == 0 {
		return nil, utils.NewValidationError("workbook has no header row")
	}
	if err := validateImportHeader(rows[0]); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}

	records := make([]*FinancialRecordInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// Sheets often carry trailing blank rows; skip fully empty ones.
		if emptyRow(row) {
			continue
		}
		records = append(records, &FinancialRecordInput{
			Date:            textCell(row, 0),
			LocationName:    textCell(row, 1),
			Production:      flexCell(row, 2),
			Adjustments:     flexCell(row, 3),
			WriteOffs:       flexCell(row, 4),
			PatientIncome:   flexCell(row, 5),
			InsuranceIncome: flexCell(row, 6),
			Unearned:        flexCell(row, 7),
			NewPatients:     flexCell(row, 8),
			ProviderName:    textCell(row, 9),
		})
	}

	if len(records) == 0 {
		return nil, utils.NewValidationError("workbook has no data rows")
	}

	summary, err := ImportFinancialRecords(ctx, &NewFinancialImport{
		ClinicId:     clinicId,
		DataSourceId: dataSourceId,
		Records:      records,
		Upsert:       upsert,
		DryRun:       dryRun,
	})
	if err != nil {
		return nil, err
	}

	summary.FileName = filename
	return summary, nil
}
