package config

import (
	"os"
	"strings"
)

// StrictGoalOverlapGuard enables guardrails for duplicate targets:
// creating a goal that overlaps an existing goal for the same metric/provider/period is rejected.
//
// Set via env:
// - STRICT_GOAL_OVERLAP=true
func StrictGoalOverlapGuard() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_GOAL_OVERLAP")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SyncAutoImportFor restricts which inbound connector payload kinds are
// imported automatically. Unset imports every kind; once set, kinds not
// listed are acknowledged and logged so the subscription never backs up.
//
// Set via env:
// - SYNC_AUTO_IMPORT_KINDS="FINANCIALS"
//
// Kind keys are case-insensitive.
func SyncAutoImportFor(kind string) bool {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if kind == "" {
		return false
	}
	raw := os.Getenv("SYNC_AUTO_IMPORT_KINDS")
	if strings.TrimSpace(raw) == "" {
		return true
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToUpper(strings.TrimSpace(part)) == kind {
			return true
		}
	}
	return false
}
