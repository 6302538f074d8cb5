package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
)

// Goal creation against a real MySQL + Redis: the standalone strategy must
// persist the goal with its outbox event and history row in one commit, the
// template strategy must copy metric/period/target from the template, and a
// rejected payload must leave nothing behind.
func TestGoalCreate_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME_2", "practice_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	clinic, err := models.CreateClinic(ctx, &models.NewClinic{
		Name:  "Goal Clinic",
		Email: "owner@goal.local",
	})
	if err != nil {
		t.Fatalf("CreateClinic: %v", err)
	}
	clinicID := clinic.ID.String()
	ctx = utils.SetClinicIdInContext(ctx, clinicID)

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	// CreateClinic seeds the system metric definitions.
	var production models.MetricDefinition
	if err := db.WithContext(ctx).Where("clinic_id = ? AND code = ?", clinicID, "production").
		First(&production).Error; err != nil {
		t.Fatalf("fetch production metric: %v", err)
	}

	// 1) Standalone goal: row, outbox event and history in one commit.
	created, err := models.CreateGoal(ctx, &models.NewGoal{
		MetricDefinitionId: production.ID,
		TimePeriod:         models.TimePeriodMonthly,
		StartDate:          "2026-03-01",
		EndDate:            "2026-05-31",
		TargetValue:        decimal.NewFromInt(50000),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if created.Goal == nil || created.Goal.ID == 0 {
		t.Fatalf("goal not persisted: %+v", created)
	}

	var outbox models.SyncMessageRecord
	if err := db.Where("clinic_id = ? AND reference_type = ? AND reference_id = ?",
		clinicID, models.SyncReferenceTypeGoal, created.Goal.ID).First(&outbox).Error; err != nil {
		t.Fatalf("fetch goal outbox record: %v", err)
	}
	if outbox.PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("outbox publish status: expected PENDING, got %s", outbox.PublishStatus)
	}

	var history models.History
	if err := db.Where("clinic_id = ? AND reference_type = ? AND reference_id = ?",
		clinicID, "goals", created.Goal.ID).First(&history).Error; err != nil {
		t.Fatalf("fetch goal history: %v", err)
	}
	if history.ActionType != "CREATE" {
		t.Fatalf("history action: expected CREATE, got %s", history.ActionType)
	}

	// 2) A reversed window is rejected and writes nothing.
	var before int64
	if err := db.Model(&models.Goal{}).Where("clinic_id = ?", clinicID).Count(&before).Error; err != nil {
		t.Fatalf("count goals: %v", err)
	}
	_, err = models.CreateGoal(ctx, &models.NewGoal{
		MetricDefinitionId: production.ID,
		TimePeriod:         models.TimePeriodWeekly,
		StartDate:          "2026-05-31",
		EndDate:            "2026-03-01",
		TargetValue:        decimal.NewFromInt(1000),
	})
	if err == nil {
		t.Fatal("reversed window must be rejected")
	}
	if utils.KindOf(err) != utils.ErrKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	var after int64
	if err := db.Model(&models.Goal{}).Where("clinic_id = ?", clinicID).Count(&after).Error; err != nil {
		t.Fatalf("count goals: %v", err)
	}
	if after != before {
		t.Fatalf("rejected goal persisted: %d -> %d", before, after)
	}

	// 3) An unknown metric maps to not found.
	_, err = models.CreateGoal(ctx, &models.NewGoal{
		MetricDefinitionId: 999999,
		TimePeriod:         models.TimePeriodMonthly,
		StartDate:          "2026-03-01",
		EndDate:            "2026-05-31",
		TargetValue:        decimal.NewFromInt(1000),
	})
	if err == nil || utils.KindOf(err) != utils.ErrKindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}

	// 4) A template goal copies metric, period and target.
	template, err := models.CreateGoalTemplate(ctx, &models.NewGoalTemplate{
		Name:               "Quarterly Production",
		MetricDefinitionId: production.ID,
		TimePeriod:         models.TimePeriodQuarterly,
		TargetValue:        decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("CreateGoalTemplate: %v", err)
	}
	fromTemplate, err := models.CreateGoal(ctx, &models.NewGoal{
		TemplateId: &template.ID,
		StartDate:  "2026-06-01",
		EndDate:    "2026-08-31",
	})
	if err != nil {
		t.Fatalf("CreateGoal from template: %v", err)
	}
	goal := fromTemplate.Goal
	if goal.MetricDefinitionId != production.ID || goal.TimePeriod != models.TimePeriodQuarterly {
		t.Fatalf("template fields not copied: %+v", goal)
	}
	if !goal.TargetValue.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("template target not copied: %s", goal.TargetValue)
	}
	if goal.TemplateId == nil || *goal.TemplateId != template.ID {
		t.Fatalf("goal should reference its template: %v", goal.TemplateId)
	}

	// 5) A start date far in the past still creates, with a warning.
	warned, err := models.CreateGoal(ctx, &models.NewGoal{
		MetricDefinitionId: production.ID,
		TimePeriod:         models.TimePeriodYearly,
		StartDate:          "2020-01-01",
		EndDate:            "2026-12-31",
		TargetValue:        decimal.NewFromInt(900000),
	})
	if err != nil {
		t.Fatalf("CreateGoal with past start: %v", err)
	}
	if len(warned.Warnings) == 0 {
		t.Fatal("past start date should warn")
	}
}
