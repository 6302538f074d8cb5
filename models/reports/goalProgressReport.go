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

const (
	GoalStatusAchieved = "achieved"
	GoalStatusOnTrack  = "on_track"
	GoalStatusBehind   = "behind"
	GoalStatusNoData   = "no_data"
)

type GoalProgressRow struct {
	GoalId             int               `json:"goal_id"`
	MetricDefinitionId int               `json:"metric_definition_id"`
	MetricCode         string            `json:"metric_code"`
	MetricName         string            `json:"metric_name"`
	LocationId         *int              `json:"location_id"`
	ProviderId         *int              `json:"provider_id"`
	TimePeriod         models.TimePeriod `json:"time_period"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	TargetValue        decimal.Decimal   `json:"target_value"`
	ActualValue        decimal.Decimal   `json:"actual_value"`
	Progress           decimal.Decimal   `json:"progress"`
	ExpectedProgress   decimal.Decimal   `json:"expected_progress"`
	Status             string            `json:"status"`
}

type GoalProgressResponse struct {
	AsOfDate string             `json:"as_of_date"`
	Goals    []*GoalProgressRow `json:"goals"`
}

// aggregate expression per system metric code. The import pipeline only
// feeds these five columns; goals on custom metrics report no actuals.
var metricAggregates = map[string]string{
	"production":       "COALESCE(SUM(production), 0)",
	"collections":      "COALESCE(SUM(patient_income), 0)",
	"netProduction":    "COALESCE(SUM(net_production), 0)",
	"totalCollections": "COALESCE(SUM(total_collections), 0)",
	"newPatients":      "COALESCE(SUM(new_patients), 0)",
}

func GetGoalProgress(ctx context.Context, asOfDate string, locationId *int, providerId *int, timePeriod models.TimePeriod) (*GoalProgressResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "goal_progress", started, map[string]any{
		"as_of_date": asOfDate,
	})

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if asOfDate != "" {
		parsed, err := models.ParseDateString(asOfDate)
		if err != nil {
			return nil, utils.NewValidationError("asOfDate must be a valid YYYY-MM-DD date")
		}
		asOf = parsed
	}

	if reportCacheEnabled() {
		key := fmt.Sprintf("report:goal_progress:%s:%s:%d:%d:%s",
			clinicId, asOf.Format("2006-01-02"),
			utils.DereferencePtr(locationId), utils.DereferencePtr(providerId), timePeriod)
		var cached *GoalProgressResponse
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		response, err := queryGoalProgress(ctx, clinicId, asOf, locationId, providerId, timePeriod)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, response, reportCacheTTL())
		return response, nil
	}

	return queryGoalProgress(ctx, clinicId, asOf, locationId, providerId, timePeriod)
}

func queryGoalProgress(ctx context.Context, clinicId string, asOf time.Time, locationId *int, providerId *int, timePeriod models.TimePeriod) (*GoalProgressResponse, error) {

	db := config.GetDB()

	// goals whose window contains the as-of date
	dbCtx := db.WithContext(ctx).
		Where("clinic_id = ? AND start_date <= ? AND end_date >= ?", clinicId, asOf, asOf)
	if locationId != nil && *locationId > 0 {
		dbCtx = dbCtx.Where("location_id = ?", *locationId)
	}
	if providerId != nil && *providerId > 0 {
		dbCtx = dbCtx.Where("provider_id = ?", *providerId)
	}
	if len(timePeriod) > 0 {
		dbCtx = dbCtx.Where("time_period = ?", timePeriod)
	}

	var goals []*models.Goal
	if err := dbCtx.Order("start_date, id").Find(&goals).Error; err != nil {
		return nil, err
	}

	metricDefinitions, err := models.MapAllMetricDefinition(ctx)
	if err != nil {
		return nil, err
	}

	response := &GoalProgressResponse{
		AsOfDate: asOf.Format("2006-01-02"),
		Goals:    []*GoalProgressRow{},
	}

	for _, goal := range goals {
		row := &GoalProgressRow{
			GoalId:             goal.ID,
			MetricDefinitionId: goal.MetricDefinitionId,
			LocationId:         goal.LocationId,
			ProviderId:         goal.ProviderId,
			TimePeriod:         goal.TimePeriod,
			StartDate:          goal.StartDate.Format("2006-01-02"),
			EndDate:            goal.EndDate.Format("2006-01-02"),
			TargetValue:        goal.TargetValue,
			ActualValue:        decimal.Zero,
			Status:             GoalStatusNoData,
		}

		definition := metricDefinitions[goal.MetricDefinitionId]
		if definition != nil {
			row.MetricCode = definition.Code
			row.MetricName = definition.Name
		}

		row.ExpectedProgress = expectedProgress(goal.StartDate, goal.EndDate, asOf)

		aggregate := ""
		if definition != nil {
			aggregate = metricAggregates[definition.Code]
		}
		if aggregate == "" {
			response.Goals = append(response.Goals, row)
			continue
		}

		actual, err := sumGoalActual(ctx, clinicId, goal, asOf, aggregate)
		if err != nil {
			return nil, err
		}
		row.ActualValue = actual

		if !goal.TargetValue.IsZero() {
			row.Progress = actual.Div(goal.TargetValue).Mul(decimal.NewFromInt(100)).Round(2)
		}
		switch {
		case row.Progress.GreaterThanOrEqual(decimal.NewFromInt(100)):
			row.Status = GoalStatusAchieved
		case row.Progress.GreaterThanOrEqual(row.ExpectedProgress):
			row.Status = GoalStatusOnTrack
		default:
			row.Status = GoalStatusBehind
		}

		response.Goals = append(response.Goals, row)
	}

	return response, nil
}

// percent of the goal window elapsed at the as-of date, clamped to [0, 100]
func expectedProgress(startDate time.Time, endDate time.Time, asOf time.Time) decimal.Decimal {
	totalDays := int64(endDate.Sub(startDate).Hours()/24) + 1
	if totalDays <= 0 {
		return decimal.NewFromInt(100)
	}
	elapsedDays := int64(asOf.Sub(startDate).Hours()/24) + 1
	if elapsedDays <= 0 {
		return decimal.Zero
	}
	if elapsedDays >= totalDays {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(elapsedDays).Div(decimal.NewFromInt(totalDays)).Mul(decimal.NewFromInt(100)).Round(2)
}

func sumGoalActual(ctx context.Context, clinicId string, goal *models.Goal, asOf time.Time, aggregate string) (decimal.Decimal, error) {

	windowEnd := asOf
	if goal.EndDate.Before(windowEnd) {
		windowEnd = goal.EndDate
	}

	query := `
			SELECT ` + aggregate + ` AS actual
			FROM location_financials
			WHERE
				clinic_id = ?
				AND record_date >= ?
				AND record_date <= ?`
	args := []interface{}{clinicId, goal.StartDate, windowEnd}

	if goal.LocationId != nil {
		query += `
				AND location_id = ?`
		args = append(args, *goal.LocationId)
	}
	if goal.ProviderId != nil {
		query += `
				AND provider_id = ?`
		args = append(args, *goal.ProviderId)
	}

	db := config.GetDB()
	var actual decimal.Decimal
	row := db.WithContext(ctx).Raw(query, args...).Row()
	if err := row.Scan(&actual); err != nil {
		return decimal.Zero, err
	}
	return actual, nil
}
