package models

import (
	"context"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
)

// goalCreationStrategy turns a goal payload into a goal row.
// validate must run before create; create assumes a validated receiver.
type goalCreationStrategy interface {
	validate(ctx context.Context) error
	create(ctx context.Context) (*Goal, error)
	warnings() []string
}

func CreateGoal(ctx context.Context, input *NewGoal) (*GoalCreateResult, error) {

	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, utils.NewValidationError("clinic id is required")
	}

	strategy, err := resolveGoalStrategy(clinicId, input)
	if err != nil {
		return nil, err
	}
	if err := strategy.validate(ctx); err != nil {
		return nil, err
	}
	goal, err := strategy.create(ctx)
	if err != nil {
		return nil, err
	}

	return &GoalCreateResult{Goal: goal, Warnings: strategy.warnings()}, nil
}

// An explicit mode wins; otherwise templateId decides.
func resolveGoalStrategy(clinicId string, input *NewGoal) (goalCreationStrategy, error) {
	switch input.Mode {
	case GoalModeStandalone:
		return &standaloneGoalStrategy{clinicId: clinicId, input: input}, nil
	case GoalModeTemplate:
		return &templateGoalStrategy{clinicId: clinicId, input: input}, nil
	case "":
		if input.TemplateId != nil {
			return &templateGoalStrategy{clinicId: clinicId, input: input}, nil
		}
		return &standaloneGoalStrategy{clinicId: clinicId, input: input}, nil
	}
	return nil, utils.NewValidationError("unknown goal mode")
}

// parseGoalDateRange checks the goal window. Ordering is fatal for every
// time period; far past/future dates only warn.
func parseGoalDateRange(start, end string, now time.Time) (time.Time, time.Time, []string, error) {
	startDate, err := ParseDateString(start)
	if err != nil {
		return time.Time{}, time.Time{}, nil, utils.NewValidationError("startDate must be a valid YYYY-MM-DD date")
	}
	endDate, err := ParseDateString(end)
	if err != nil {
		return time.Time{}, time.Time{}, nil, utils.NewValidationError("endDate must be a valid YYYY-MM-DD date")
	}
	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, nil, utils.NewValidationError("startDate must be before endDate")
	}
	var warnings []string
	if startDate.Before(now.AddDate(-1, 0, 0)) {
		warnings = append(warnings, "startDate is more than a year in the past")
	}
	if endDate.After(now.AddDate(2, 0, 0)) {
		warnings = append(warnings, "endDate is more than two years ahead")
	}
	return startDate, endDate, warnings, nil
}

type standaloneGoalStrategy struct {
	clinicId    string
	input       *NewGoal
	templateId  *int // nil unless the template strategy resolved this payload
	startDate   time.Time
	endDate     time.Time
	warningList []string
}

func (s *standaloneGoalStrategy) warnings() []string {
	return s.warningList
}

func (s *standaloneGoalStrategy) validate(ctx context.Context) error {
	input := s.input

	if input.MetricDefinitionId == 0 {
		return utils.NewValidationError("metricDefinitionId is required")
	}
	if err := utils.ValidateResourceId[MetricDefinition](ctx, s.clinicId, input.MetricDefinitionId); err != nil {
		return utils.NewNotFoundError("metricDefinition not found")
	}
	if input.TimePeriod == "" {
		return utils.NewValidationError("timePeriod is required")
	}

	startDate, endDate, dateWarnings, err := parseGoalDateRange(input.StartDate, input.EndDate, time.Now().UTC())
	if err != nil {
		return err
	}
	s.warningList = append(s.warningList, dateWarnings...)

	if !input.TargetValue.IsPositive() {
		return utils.NewValidationError("target value must be greater than zero")
	}

	if input.ProviderId != nil {
		if err := utils.ValidateResourceId[Provider](ctx, s.clinicId, *input.ProviderId); err != nil {
			return utils.NewNotFoundError("provider not found")
		}
	}
	if input.LocationId != nil {
		if err := utils.ValidateResourceId[Location](ctx, s.clinicId, *input.LocationId); err != nil {
			return utils.NewNotFoundError("location not found")
		}
	}

	if config.StrictGoalOverlapGuard() {
		if err := s.rejectOverlap(ctx, startDate, endDate); err != nil {
			return err
		}
	}

	s.startDate = startDate
	s.endDate = endDate
	return nil
}

// rejectOverlap fails when another goal for the same metric, period and
// provider/location scope covers any of the requested date range.
func (s *standaloneGoalStrategy) rejectOverlap(ctx context.Context, startDate, endDate time.Time) error {
	input := s.input

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Goal{}).
		Where("clinic_id = ?", s.clinicId).
		Where("metric_definition_id = ?", input.MetricDefinitionId).
		Where("time_period = ?", input.TimePeriod).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate)
	if input.ProviderId != nil {
		query = query.Where("provider_id = ?", *input.ProviderId)
	} else {
		query = query.Where("provider_id IS NULL")
	}
	if input.LocationId != nil {
		query = query.Where("location_id = ?", *input.LocationId)
	} else {
		query = query.Where("location_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return utils.WrapInternalError("could not check for overlapping goals", err)
	}
	if count > 0 {
		return utils.NewValidationError("an overlapping goal already exists for this metric, period and scope")
	}
	return nil
}

func (s *standaloneGoalStrategy) create(ctx context.Context) (*Goal, error) {

	userName, _ := utils.GetUserNameFromContext(ctx)

	goal := Goal{
		ClinicId:           s.clinicId,
		MetricDefinitionId: s.input.MetricDefinitionId,
		ProviderId:         s.input.ProviderId,
		LocationId:         s.input.LocationId,
		TimePeriod:         s.input.TimePeriod,
		StartDate:          s.startDate,
		EndDate:            s.endDate,
		TargetValue:        s.input.TargetValue,
		TemplateId:         s.templateId,
		Notes:              s.input.Notes,
		CreatedBy:          userName,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&goal).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapInternalError("could not create goal", err)
	}
	if err := PublishToSync(ctx, tx, s.clinicId, time.Now().UTC(), goal.ID, SyncReferenceTypeGoal, goal, nil, PubSubMessageActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "CREATE", goal.ID, "goals", nil, goal, "created goal"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	if err := goal.RemoveAllRedis(); err != nil {
		return nil, err
	}

	return &goal, nil
}

type templateGoalStrategy struct {
	clinicId string
	input    *NewGoal
	resolved *standaloneGoalStrategy
}

func (t *templateGoalStrategy) warnings() []string {
	if t.resolved == nil {
		return nil
	}
	return t.resolved.warnings()
}

func (t *templateGoalStrategy) validate(ctx context.Context) error {
	input := t.input

	if input.TemplateId == nil || *input.TemplateId == 0 {
		return utils.NewValidationError("templateId is required")
	}
	template, err := utils.FetchModel[GoalTemplate](ctx, t.clinicId, *input.TemplateId)
	if err != nil {
		return utils.NewNotFoundError("goalTemplate not found")
	}

	// template wins for metric, period and target; the payload keeps
	// dates, provider, location and notes
	resolvedInput := *input
	resolvedInput.MetricDefinitionId = template.MetricDefinitionId
	resolvedInput.TimePeriod = template.TimePeriod
	resolvedInput.TargetValue = template.TargetValue

	t.resolved = &standaloneGoalStrategy{
		clinicId:   t.clinicId,
		input:      &resolvedInput,
		templateId: input.TemplateId,
	}
	if template.IsActive != nil && !*template.IsActive {
		t.resolved.warningList = append(t.resolved.warningList, "goal template '"+template.Name+"' is inactive")
	}
	return t.resolved.validate(ctx)
}

func (t *templateGoalStrategy) create(ctx context.Context) (*Goal, error) {
	return t.resolved.create(ctx)
}
