// recompute-financials re-derives net_production and total_collections on
// location_financials rows whose stored values drifted from their source
// columns (e.g. after a manual SQL fix).
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... go run ./cmd/recompute-financials [-clinic-id ...] [-from ...] [-to ...] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"gorm.io/gorm"
)

func main() {
	clinicID := flag.String("clinic-id", "", "Optional: recompute only one clinic (uuid string). If empty, recomputes all clinics.")
	from := flag.String("from", "", "Optional: start date (YYYY-MM-DD).")
	to := flag.String("to", "", "Optional: end date (YYYY-MM-DD).")
	dryRun := flag.Bool("dry-run", false, "Count drifted rows without updating them")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
	ctx = context.WithValue(ctx, utils.ContextKeyUserName, "RecomputeFinancials")
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var clinics []models.Clinic
	clinicQuery := db.WithContext(ctx).Model(&models.Clinic{})
	if strings.TrimSpace(*clinicID) != "" {
		clinicQuery = clinicQuery.Where("id = ?", strings.TrimSpace(*clinicID))
	}
	if err := clinicQuery.Find(&clinics).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list clinics: %v\n", err)
		os.Exit(1)
	}
	if len(clinics) == 0 {
		fmt.Fprintln(os.Stderr, "no clinics found to recompute")
		return
	}

	driftFilter := `
		clinic_id = ?
		AND (net_production <> production - adjustments - write_offs
			OR total_collections <> patient_income + insurance_income)`
	for _, clinic := range clinics {
		cid := clinic.ID.String()

		args := []interface{}{cid}
		filter := driftFilter
		if strings.TrimSpace(*from) != "" {
			filter += `
		AND record_date >= ?`
			args = append(args, strings.TrimSpace(*from))
		}
		if strings.TrimSpace(*to) != "" {
			filter += `
		AND record_date <= ?`
			args = append(args, strings.TrimSpace(*to))
		}

		if *dryRun {
			var drifted int64
			if err := db.WithContext(ctx).Model(&models.LocationFinancial{}).
				Where(filter, args...).Count(&drifted).Error; err != nil {
				fmt.Fprintf(os.Stderr, "clinic %s drift count failed: %v\n", cid, err)
				continue
			}
			fmt.Printf("clinic=%s drifted_rows=%d (dry run)\n", cid, drifted)
			continue
		}

		var affected int64
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Exec(`
				UPDATE location_financials
				SET net_production = production - adjustments - write_offs,
					total_collections = patient_income + insurance_income,
					updated_at = NOW()
				WHERE `+filter, args...)
			affected = result.RowsAffected
			return result.Error
		}); err != nil {
			fmt.Fprintf(os.Stderr, "clinic %s recompute failed: %v\n", cid, err)
			continue
		}
		fmt.Printf("clinic=%s recomputed_rows=%d\n", cid, affected)
	}

	fmt.Println("Recompute complete")
}
