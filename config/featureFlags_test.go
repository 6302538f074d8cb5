package config

import "testing"

func TestStrictGoalOverlapGuard(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"off", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"y", true},
	}
	for _, tc := range cases {
		t.Run("value="+tc.value, func(t *testing.T) {
			t.Setenv("STRICT_GOAL_OVERLAP", tc.value)
			if got := StrictGoalOverlapGuard(); got != tc.want {
				t.Fatalf("STRICT_GOAL_OVERLAP=%q: got %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestSyncAutoImportFor(t *testing.T) {
	cases := []struct {
		name  string
		kinds string
		kind  string
		want  bool
	}{
		{"unset allows any kind", "", "FINANCIALS", true},
		{"blank allows any kind", "   ", "GOALS", true},
		{"listed kind allowed", "FINANCIALS", "FINANCIALS", true},
		{"unlisted kind refused", "FINANCIALS", "GOALS", false},
		{"list is case-insensitive", "financials, goals", "GOALS", true},
		{"kind is case-insensitive", "FINANCIALS", "financials", true},
		{"spaces around entries ignored", " FINANCIALS , GOALS ", "FINANCIALS", true},
		{"empty kind always refused", "FINANCIALS", "", false},
		{"empty kind refused even when unset", "", "  ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SYNC_AUTO_IMPORT_KINDS", tc.kinds)
			if got := SyncAutoImportFor(tc.kind); got != tc.want {
				t.Fatalf("SYNC_AUTO_IMPORT_KINDS=%q kind=%q: got %v, want %v", tc.kinds, tc.kind, got, tc.want)
			}
		})
	}
}
