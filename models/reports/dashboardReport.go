package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type ProductionTrendDetail struct {
	Month         string          `json:"month"`
	Production    decimal.Decimal `json:"production"`
	NetProduction decimal.Decimal `json:"net_production"`
	Collections   decimal.Decimal `json:"collections"`
	NewPatients   int             `json:"new_patients"`
}

type TopProviderResponse struct {
	ProviderId    int             `json:"provider_id"`
	ProviderName  string          `json:"provider_name"`
	NetProduction decimal.Decimal `json:"net_production"`
}

type DashboardResponse struct {
	FilterType         string                   `json:"filter_type"`
	StartDate          string                   `json:"start_date"`
	EndDate            string                   `json:"end_date"`
	TotalProduction    decimal.Decimal          `json:"total_production"`
	TotalNetProduction decimal.Decimal          `json:"total_net_production"`
	TotalCollections   decimal.Decimal          `json:"total_collections"`
	CollectionRate     decimal.Decimal          `json:"collection_rate"`
	TotalNewPatients   int                      `json:"total_new_patients"`
	ActiveGoals        int64                    `json:"active_goals"`
	ProductionTrend    []*ProductionTrendDetail `json:"production_trend"`
	TopProviders       []*TopProviderResponse   `json:"top_providers"`
	RecentActivity     []*models.History        `json:"recent_activity"`
}

func GetDashboard(ctx context.Context, filterType string) (*DashboardResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "dashboard", started, map[string]any{
		"filter_type": filterType,
	})

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	if filterType == "" {
		filterType = "thisFiscalYear"
	}

	if reportCacheEnabled() {
		key := fmt.Sprintf("report:dashboard:%s:%s", clinicId, filterType)
		var cached *DashboardResponse
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		response, err := queryDashboard(ctx, clinicId, filterType)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, response, reportCacheTTL())
		return response, nil
	}

	return queryDashboard(ctx, clinicId, filterType)
}

func queryDashboard(ctx context.Context, clinicId string, filterType string) (*DashboardResponse, error) {

	db := config.GetDB()

	clinic, err := models.GetClinicById(ctx, clinicId)
	if err != nil {
		return nil, err
	}

	fiscalYearStartMonth, err := utils.GetFiscalYearStartMonth(string(clinic.FiscalYear))
	if err != nil {
		return nil, err
	}

	startDate, endDate, err := utils.GetStartAndEndDateWithClinicFiscalYear(fiscalYearStartMonth, filterType)
	if err != nil {
		return nil, err
	}

	query := `
				WITH RECURSIVE MonthList AS (
					SELECT ? AS month_date
					UNION ALL
					SELECT DATE_ADD(month_date, INTERVAL 1 MONTH)
					FROM MonthList
					WHERE DATE_ADD(month_date, INTERVAL 1 MONTH) <= ?
				),
				MonthlyAgg AS (
					SELECT
						DATE_FORMAT(record_date, '%Y-%m') AS month,
						SUM(production) AS production,
						SUM(net_production) AS net_production,
						SUM(total_collections) AS collections,
						SUM(new_patients) AS new_patients
					FROM location_financials
					WHERE
						record_date >= ?
						AND record_date <= ?
						AND clinic_id = ?
					GROUP BY DATE_FORMAT(record_date, '%Y-%m')
				)
				SELECT
					DATE_FORMAT(ml.month_date, '%Y-%m') AS month,
					COALESCE(ma.production, 0) AS Production,
					COALESCE(ma.net_production, 0) AS NetProduction,
					COALESCE(ma.collections, 0) AS Collections,
					COALESCE(ma.new_patients, 0) AS NewPatients
				FROM
					MonthList ml
				LEFT JOIN
					MonthlyAgg ma ON DATE_FORMAT(ml.month_date, '%Y-%m') = ma.month
				ORDER BY
					ml.month_date;
                `

	rows, err := db.Raw(query,
		startDate, endDate,
		startDate, endDate, clinicId).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := &DashboardResponse{
		FilterType:         filterType,
		StartDate:          startDate.Format("2006-01-02"),
		EndDate:            endDate.Format("2006-01-02"),
		TotalProduction:    decimal.NewFromInt(0),
		TotalNetProduction: decimal.NewFromInt(0),
		TotalCollections:   decimal.NewFromInt(0),
		ProductionTrend:    []*ProductionTrendDetail{},
		TopProviders:       []*TopProviderResponse{},
	}

	for rows.Next() {
		var monthStr string
		var production, netProduction, collections decimal.Decimal
		var newPatients int

		err := rows.Scan(&monthStr, &production, &netProduction, &collections, &newPatients)
		if err != nil {
			return nil, err
		}

		// Parse month string to time.Time
		month, err := time.Parse("2006-01", monthStr)
		if err != nil {
			return nil, err
		}

		formattedMonth := month.Format("2006-Jan")

		detail := &ProductionTrendDetail{
			Month:         formattedMonth,
			Production:    production,
			NetProduction: netProduction,
			Collections:   collections,
			NewPatients:   newPatients,
		}
		response.ProductionTrend = append(response.ProductionTrend, detail)
		response.TotalProduction = response.TotalProduction.Add(production)
		response.TotalNetProduction = response.TotalNetProduction.Add(netProduction)
		response.TotalCollections = response.TotalCollections.Add(collections)
		response.TotalNewPatients += newPatients
	}

	response.CollectionRate = collectionRate(response.TotalCollections, response.TotalNetProduction)

	topProviderQuery := `
			SELECT
				lf.provider_id,
				p.name AS provider_name,
				COALESCE(SUM(lf.net_production), 0) AS net_production
			FROM location_financials AS lf
			JOIN providers AS p ON lf.provider_id = p.id
			WHERE
				lf.record_date >= ?
				AND lf.record_date <= ?
				AND lf.clinic_id = ?
				AND lf.provider_id IS NOT NULL
			GROUP BY
				lf.provider_id,
				p.name
			ORDER BY
				net_production DESC
			LIMIT 5;`

	if err := db.WithContext(ctx).Raw(topProviderQuery,
		startDate, endDate, clinicId).
		Scan(&response.TopProviders).Error; err != nil {
		return nil, err
	}

	today := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&models.Goal{}).
		Where("clinic_id = ? AND start_date <= ? AND end_date >= ?", clinicId, today, today).
		Count(&response.ActiveGoals).Error; err != nil {
		return nil, err
	}

	activityLimit := 10
	recent, err := models.GetHistories(ctx, nil, nil, nil, &activityLimit)
	if err != nil {
		return nil, err
	}
	response.RecentActivity = recent

	return response, nil
}
