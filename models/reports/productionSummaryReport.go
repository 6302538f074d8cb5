package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
)

type ProductionSummaryDetail struct {
	Period        string          `json:"period"`
	LocationId    int             `json:"location_id"`
	LocationName  string          `json:"location_name"`
	Production    decimal.Decimal `json:"production"`
	Adjustments   decimal.Decimal `json:"adjustments"`
	WriteOffs     decimal.Decimal `json:"write_offs"`
	NetProduction decimal.Decimal `json:"net_production"`
	NewPatients   int             `json:"new_patients"`
}

type ProductionSummaryResponse struct {
	FromDate           string                     `json:"from_date"`
	ToDate             string                     `json:"to_date"`
	TimePeriod         models.TimePeriod          `json:"time_period"`
	TotalProduction    decimal.Decimal            `json:"total_production"`
	TotalAdjustments   decimal.Decimal            `json:"total_adjustments"`
	TotalWriteOffs     decimal.Decimal            `json:"total_write_offs"`
	TotalNetProduction decimal.Decimal            `json:"total_net_production"`
	TotalNewPatients   int                        `json:"total_new_patients"`
	Details            []*ProductionSummaryDetail `json:"details"`
}

// parse and order-check a report date range
func parseReportRange(fromDate string, toDate string) (time.Time, time.Time, error) {
	from, err := models.ParseDateString(fromDate)
	if err != nil {
		return time.Time{}, time.Time{}, utils.NewValidationError("fromDate must be a valid YYYY-MM-DD date")
	}
	to, err := models.ParseDateString(toDate)
	if err != nil {
		return time.Time{}, time.Time{}, utils.NewValidationError("toDate must be a valid YYYY-MM-DD date")
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, utils.NewValidationError("fromDate must not be after toDate")
	}
	return from, to, nil
}

// bucket expression per time period. Values are fixed here, never caller input.
func periodExpression(timePeriod models.TimePeriod) (string, error) {
	switch timePeriod {
	case models.TimePeriodDaily:
		return "DATE_FORMAT(lf.record_date, '%Y-%m-%d')", nil
	case models.TimePeriodWeekly:
		return "DATE_FORMAT(lf.record_date, '%x-W%v')", nil
	case models.TimePeriodMonthly:
		return "DATE_FORMAT(lf.record_date, '%Y-%m')", nil
	case models.TimePeriodQuarterly:
		return "CONCAT(YEAR(lf.record_date), '-Q', QUARTER(lf.record_date))", nil
	case models.TimePeriodYearly:
		return "DATE_FORMAT(lf.record_date, '%Y')", nil
	}
	return "", utils.NewValidationError("invalid time period")
}

func GetProductionSummary(ctx context.Context, fromDate string, toDate string, locationId *int, providerId *int, timePeriod models.TimePeriod) (*ProductionSummaryResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "production_summary", started, map[string]any{
		"from_date": fromDate,
		"to_date":   toDate,
	})

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	from, to, err := parseReportRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	if timePeriod == "" {
		timePeriod = models.TimePeriodMonthly
	}

	if reportCacheEnabled() {
		key := fmt.Sprintf("report:production_summary:%s:%s:%s:%s:%d:%d",
			clinicId, from.Format("2006-01-02"), to.Format("2006-01-02"), timePeriod,
			utils.DereferencePtr(locationId), utils.DereferencePtr(providerId))
		var cached *ProductionSummaryResponse
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		response, err := queryProductionSummary(ctx, clinicId, from, to, locationId, providerId, timePeriod)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, response, reportCacheTTL())
		return response, nil
	}

	return queryProductionSummary(ctx, clinicId, from, to, locationId, providerId, timePeriod)
}

func queryProductionSummary(ctx context.Context, clinicId string, from time.Time, to time.Time, locationId *int, providerId *int, timePeriod models.TimePeriod) (*ProductionSummaryResponse, error) {

	periodExpr, err := periodExpression(timePeriod)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	query := `
			SELECT
				` + periodExpr + ` AS period,
				lf.location_id,
				loc.name AS location_name,
				COALESCE(SUM(lf.production), 0) AS production,
				COALESCE(SUM(lf.adjustments), 0) AS adjustments,
				COALESCE(SUM(lf.write_offs), 0) AS write_offs,
				COALESCE(SUM(lf.net_production), 0) AS net_production,
				COALESCE(SUM(lf.new_patients), 0) AS new_patients
			FROM location_financials AS lf
			JOIN locations AS loc ON lf.location_id = loc.id
			WHERE
				lf.clinic_id = ?
				AND lf.record_date >= ?
				AND lf.record_date <= ?`

	args := []interface{}{clinicId, from, to}

	if locationId != nil && *locationId > 0 {
		query += `
				AND lf.location_id = ?`
		args = append(args, *locationId)
	}
	if providerId != nil && *providerId > 0 {
		query += `
				AND lf.provider_id = ?`
		args = append(args, *providerId)
	}

	query += `
			GROUP BY
				period,
				lf.location_id,
				loc.name
			ORDER BY
				period,
				location_name;`

	var details []*ProductionSummaryDetail
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&details).Error; err != nil {
		return nil, err
	}

	response := &ProductionSummaryResponse{
		FromDate:           from.Format("2006-01-02"),
		ToDate:             to.Format("2006-01-02"),
		TimePeriod:         timePeriod,
		TotalProduction:    decimal.NewFromInt(0),
		TotalAdjustments:   decimal.NewFromInt(0),
		TotalWriteOffs:     decimal.NewFromInt(0),
		TotalNetProduction: decimal.NewFromInt(0),
		Details:            []*ProductionSummaryDetail{},
	}
	for _, detail := range details {
		response.TotalProduction = response.TotalProduction.Add(detail.Production)
		response.TotalAdjustments = response.TotalAdjustments.Add(detail.Adjustments)
		response.TotalWriteOffs = response.TotalWriteOffs.Add(detail.WriteOffs)
		response.TotalNetProduction = response.TotalNetProduction.Add(detail.NetProduction)
		response.TotalNewPatients += detail.NewPatients
		response.Details = append(response.Details, detail)
	}

	return response, nil
}
