package reports

import (
	"context"
	"fmt"
	"net/http"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/xuri/excelize/v2"
)

// ExportProductionSummary writes the production summary as an xlsx download.
func ExportProductionSummary(ctx context.Context, w http.ResponseWriter, fromDate string, toDate string, locationId *int, providerId *int, timePeriod models.TimePeriod) error {

	response, err := GetProductionSummary(ctx, fromDate, toDate, locationId, providerId, timePeriod)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	headings := []string{"Period", "Location", "Production", "Adjustments", "Write Offs", "Net Production", "New Patients"}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	// Add data
	rowNo := 2
	for _, d := range response.Details {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), d.Period)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(rowNo), d.LocationName)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), d.Production.InexactFloat64())
		f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), d.Adjustments.InexactFloat64())
		f.SetCellValue(sheetName, "E"+fmt.Sprint(rowNo), d.WriteOffs.InexactFloat64())
		f.SetCellValue(sheetName, "F"+fmt.Sprint(rowNo), d.NetProduction.InexactFloat64())
		f.SetCellValue(sheetName, "G"+fmt.Sprint(rowNo), d.NewPatients)
		rowNo++
	}

	// Totals row
	f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), "Total")
	f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), response.TotalProduction.InexactFloat64())
	f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), response.TotalAdjustments.InexactFloat64())
	f.SetCellValue(sheetName, "E"+fmt.Sprint(rowNo), response.TotalWriteOffs.InexactFloat64())
	f.SetCellValue(sheetName, "F"+fmt.Sprint(rowNo), response.TotalNetProduction.InexactFloat64())
	f.SetCellValue(sheetName, "G"+fmt.Sprint(rowNo), response.TotalNewPatients)

	filename := fmt.Sprintf("production-summary_%s_%s.xlsx", response.FromDate, response.ToDate)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(w); err != nil {
		return err
	}
	return nil
}
