package models

import (
	"testing"
	"time"

	"bitbucket.org/dentametrics/practice_backend/utils"
)

func TestResolveGoalStrategy(t *testing.T) {
	templateID := 3

	cases := []struct {
		name         string
		input        *NewGoal
		wantTemplate bool
		wantErr      bool
	}{
		{
			name:  "explicit standalone ignores templateId",
			input: &NewGoal{Mode: GoalModeStandalone, TemplateId: &templateID},
		},
		{
			name:         "explicit template",
			input:        &NewGoal{Mode: GoalModeTemplate},
			wantTemplate: true,
		},
		{
			name:         "blank mode with templateId resolves to template",
			input:        &NewGoal{TemplateId: &templateID},
			wantTemplate: true,
		},
		{
			name:  "blank mode without templateId resolves to standalone",
			input: &NewGoal{},
		},
		{
			name:    "unknown mode rejected",
			input:   &NewGoal{Mode: GoalMode("quarterly")},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strategy, err := resolveGoalStrategy("clinic-1", tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if utils.KindOf(err) != utils.ErrKindValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, isTemplate := strategy.(*templateGoalStrategy)
			if isTemplate != tc.wantTemplate {
				t.Fatalf("expected template=%v, got %T", tc.wantTemplate, strategy)
			}
		})
	}
}

func TestParseGoalDateRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name         string
		start        string
		end          string
		wantErr      bool
		wantWarnings int
	}{
		{
			name:  "valid window",
			start: "2024-07-01",
			end:   "2024-09-30",
		},
		{
			name:    "start after end rejected",
			start:   "2024-09-30",
			end:     "2024-07-01",
			wantErr: true,
		},
		{
			name:    "start equal to end rejected",
			start:   "2024-07-01",
			end:     "2024-07-01",
			wantErr: true,
		},
		{
			name:    "unparseable start rejected",
			start:   "July 1st",
			end:     "2024-09-30",
			wantErr: true,
		},
		{
			name:    "unparseable end rejected",
			start:   "2024-07-01",
			end:     "30/09/2024",
			wantErr: true,
		},
		{
			name:    "impossible calendar date rejected",
			start:   "2024-02-30",
			end:     "2024-09-30",
			wantErr: true,
		},
		{
			name:         "start over a year back warns",
			start:        "2023-01-01",
			end:          "2024-09-30",
			wantWarnings: 1,
		},
		{
			name:         "end over two years ahead warns",
			start:        "2024-07-01",
			end:          "2026-12-31",
			wantWarnings: 1,
		},
		{
			name:         "both bounds out of range warns twice",
			start:        "2023-01-01",
			end:          "2026-12-31",
			wantWarnings: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			startDate, endDate, warnings, err := parseGoalDateRange(tc.start, tc.end, now)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if utils.KindOf(err) != utils.ErrKindValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !startDate.Before(endDate) {
				t.Fatalf("parsed range out of order: %v .. %v", startDate, endDate)
			}
			if len(warnings) != tc.wantWarnings {
				t.Fatalf("expected %d warnings, got %v", tc.wantWarnings, warnings)
			}
		})
	}
}

func TestTemplateGoalStrategy_WarningsBeforeResolve(t *testing.T) {
	strategy := &templateGoalStrategy{clinicId: "clinic-1", input: &NewGoal{}}
	if warnings := strategy.warnings(); warnings != nil {
		t.Fatalf("unresolved template strategy should have no warnings, got %v", warnings)
	}
}
