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

type CollectionsSummaryDetail struct {
	Period           string          `json:"period"`
	LocationId       int             `json:"location_id"`
	LocationName     string          `json:"location_name"`
	PatientIncome    decimal.Decimal `json:"patient_income"`
	InsuranceIncome  decimal.Decimal `json:"insurance_income"`
	TotalCollections decimal.Decimal `json:"total_collections"`
	Unearned         decimal.Decimal `json:"unearned"`
	NetProduction    decimal.Decimal `json:"net_production"`
	CollectionRate   decimal.Decimal `json:"collection_rate"`
}

type CollectionsSummaryResponse struct {
	FromDate              string                      `json:"from_date"`
	ToDate                string                      `json:"to_date"`
	TimePeriod            models.TimePeriod           `json:"time_period"`
	TotalPatientIncome    decimal.Decimal             `json:"total_patient_income"`
	TotalInsuranceIncome  decimal.Decimal             `json:"total_insurance_income"`
	TotalCollections      decimal.Decimal             `json:"total_collections"`
	TotalUnearned         decimal.Decimal             `json:"total_unearned"`
	TotalNetProduction    decimal.Decimal             `json:"total_net_production"`
	OverallCollectionRate decimal.Decimal             `json:"overall_collection_rate"`
	Details               []*CollectionsSummaryDetail `json:"details"`
}

// collections over net production, as a percentage. Zero production gives zero.
func collectionRate(collections decimal.Decimal, netProduction decimal.Decimal) decimal.Decimal {
	if netProduction.IsZero() {
		return decimal.Zero
	}
	return collections.Div(netProduction).Mul(decimal.NewFromInt(100)).Round(2)
}

func GetCollectionsSummary(ctx context.Context, fromDate string, toDate string, locationId *int, timePeriod models.TimePeriod) (*CollectionsSummaryResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "collections_summary", started, map[string]any{
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
		key := fmt.Sprintf("report:collections_summary:%s:%s:%s:%s:%d",
			clinicId, from.Format("2006-01-02"), to.Format("2006-01-02"), timePeriod,
			utils.DereferencePtr(locationId))
		var cached *CollectionsSummaryResponse
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		response, err := queryCollectionsSummary(ctx, clinicId, from, to, locationId, timePeriod)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, response, reportCacheTTL())
		return response, nil
	}

	return queryCollectionsSummary(ctx, clinicId, from, to, locationId, timePeriod)
}

func queryCollectionsSummary(ctx context.Context, clinicId string, from time.Time, to time.Time, locationId *int, timePeriod models.TimePeriod) (*CollectionsSummaryResponse, error) {

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
				COALESCE(SUM(lf.patient_income), 0) AS patient_income,
				COALESCE(SUM(lf.insurance_income), 0) AS insurance_income,
				COALESCE(SUM(lf.total_collections), 0) AS total_collections,
				COALESCE(SUM(lf.unearned), 0) AS unearned,
				COALESCE(SUM(lf.net_production), 0) AS net_production
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

	query += `
			GROUP BY
				period,
				lf.location_id,
				loc.name
			ORDER BY
				period,
				location_name;`

	var details []*CollectionsSummaryDetail
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&details).Error; err != nil {
		return nil, err
	}

	response := &CollectionsSummaryResponse{
		FromDate:             from.Format("2006-01-02"),
		ToDate:               to.Format("2006-01-02"),
		TimePeriod:           timePeriod,
		TotalPatientIncome:   decimal.NewFromInt(0),
		TotalInsuranceIncome: decimal.NewFromInt(0),
		TotalCollections:     decimal.NewFromInt(0),
		TotalUnearned:        decimal.NewFromInt(0),
		TotalNetProduction:   decimal.NewFromInt(0),
		Details:              []*CollectionsSummaryDetail{},
	}
	for _, detail := range details {
		detail.CollectionRate = collectionRate(detail.TotalCollections, detail.NetProduction)
		response.TotalPatientIncome = response.TotalPatientIncome.Add(detail.PatientIncome)
		response.TotalInsuranceIncome = response.TotalInsuranceIncome.Add(detail.InsuranceIncome)
		response.TotalCollections = response.TotalCollections.Add(detail.TotalCollections)
		response.TotalUnearned = response.TotalUnearned.Add(detail.Unearned)
		response.TotalNetProduction = response.TotalNetProduction.Add(detail.NetProduction)
		response.Details = append(response.Details, detail)
	}
	response.OverallCollectionRate = collectionRate(response.TotalCollections, response.TotalNetProduction)

	return response, nil
}
