package reports

import (
	"strings"
	"testing"

	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
)

func TestParseReportRange(t *testing.T) {
	cases := []struct {
		name     string
		fromDate string
		toDate   string
		wantErr  string
	}{
		{name: "valid range", fromDate: "2026-01-01", toDate: "2026-03-31"},
		{name: "single day", fromDate: "2026-01-15", toDate: "2026-01-15"},
		{name: "bad from", fromDate: "01/01/2026", toDate: "2026-03-31", wantErr: "fromDate"},
		{name: "bad to", fromDate: "2026-01-01", toDate: "yesterday", wantErr: "toDate"},
		{name: "empty from", fromDate: "", toDate: "2026-03-31", wantErr: "fromDate"},
		{name: "inverted", fromDate: "2026-03-31", toDate: "2026-01-01", wantErr: "after"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := parseReportRange(tc.fromDate, tc.toDate)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error should mention %q, got %q", tc.wantErr, err)
				}
				if utils.KindOf(err) != utils.ErrKindValidation {
					t.Fatalf("range errors must be validation errors, got %v", utils.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if from.Format("2006-01-02") != tc.fromDate || to.Format("2006-01-02") != tc.toDate {
				t.Fatalf("parsed range wrong: %v .. %v", from, to)
			}
		})
	}
}

func TestPeriodExpression(t *testing.T) {
	for _, period := range []models.TimePeriod{
		models.TimePeriodDaily,
		models.TimePeriodWeekly,
		models.TimePeriodMonthly,
		models.TimePeriodQuarterly,
		models.TimePeriodYearly,
	} {
		expr, err := periodExpression(period)
		if err != nil {
			t.Fatalf("periodExpression(%s): %v", period, err)
		}
		if !strings.Contains(expr, "record_date") {
			t.Fatalf("periodExpression(%s) should bucket on record_date, got %q", period, expr)
		}
	}

	if _, err := periodExpression(models.TimePeriod("hourly")); err == nil {
		t.Fatal("unknown period should be rejected")
	} else if utils.KindOf(err) != utils.ErrKindValidation {
		t.Fatalf("unknown period must be a validation error, got %v", utils.KindOf(err))
	}
}
