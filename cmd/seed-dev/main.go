// seed-dev creates or reuses a development clinic with an owner login,
// optional demo users, and optional sample financial rows so the report
// endpoints have data to show.
//
// Usage (from backend directory):
//   SEED_OWNER_PASSWORD=... go run ./cmd/seed-dev [--clinic-name ...] [--with-sample-data]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "dev-clinic"
	}
	return out
}

func main() {
	// Env-first, flags override env for convenience.
	defaultClinicName := getenv("SEED_CLINIC_NAME", "dev-clinic")
	defaultOwnerEmail := getenv("SEED_OWNER_EMAIL", "dev-owner@local")
	defaultOwnerPassword := strings.TrimSpace(os.Getenv("SEED_OWNER_PASSWORD"))
	defaultDemoPassword := strings.TrimSpace(os.Getenv("SEED_DEMO_PASSWORD"))

	clinicName := flag.String("clinic-name", defaultClinicName, "Clinic name to create/reuse")
	ownerEmail := flag.String("owner-email", defaultOwnerEmail, "Owner user email/username to create/reuse")
	ownerPassword := flag.String("owner-password", defaultOwnerPassword, "Owner user password to set (required)")
	demoPassword := flag.String("demo-password", defaultDemoPassword, "Password for 5 demo users (defaults to owner password if empty)")
	createDemoUsers := flag.Bool("create-demo-users", true, "Also create 5 demo users")
	withSampleData := flag.Bool("with-sample-data", false, "Seed a second location, providers and 30 days of financials")
	flag.Parse()

	if strings.TrimSpace(*ownerPassword) == "" {
		fmt.Fprintln(os.Stderr, "missing required owner password: set SEED_OWNER_PASSWORD or pass --owner-password")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	// Model history hooks require actor fields in context.
	actorUserID := 1
	if v := strings.TrimSpace(os.Getenv("SEED_ACTOR_USER_ID")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			actorUserID = parsed
		}
	}
	ctx = context.WithValue(ctx, utils.ContextKeyUserId, actorUserID)
	ctx = context.WithValue(ctx, utils.ContextKeyUserName, getenv("SEED_ACTOR_USER_NAME", "Seed"))

	desiredClinicName := strings.TrimSpace(*clinicName)
	desiredOwnerUsername := strings.TrimSpace(*ownerEmail)

	// 1) Find or create clinic (idempotent). CreateClinic also seeds the
	// default modules, Owner role/user, main location and system metrics.
	var clinic models.Clinic
	clinicErr := db.WithContext(ctx).Model(&models.Clinic{}).
		Where("email = ?", desiredOwnerUsername).Or("name = ?", desiredClinicName).
		First(&clinic).Error
	if clinicErr != nil {
		if clinicErr != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup clinic: %v\n", clinicErr)
			os.Exit(1)
		}
		created, err := models.CreateClinic(ctx, &models.NewClinic{
			Name:  desiredClinicName,
			Email: desiredOwnerUsername,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create clinic: %v\n", err)
			os.Exit(1)
		}
		clinic = *created
	}

	clinicID := clinic.ID.String()
	ctx = context.WithValue(ctx, utils.ContextKeyClinicId, clinicID)

	// 2) Set the owner password and ensure demo users.
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ownerRole models.Role
		if err := tx.WithContext(ctx).Model(&models.Role{}).
			Where("clinic_id = ? AND name = ?", clinicID, "Owner").
			First(&ownerRole).Error; err != nil {
			return fmt.Errorf("failed to lookup Owner role: %w", err)
		}

		hashedOwnerPassword, err := utils.HashPassword(strings.TrimSpace(*ownerPassword))
		if err != nil {
			return fmt.Errorf("failed to hash owner password: %w", err)
		}

		var owner models.User
		if err := tx.WithContext(ctx).Model(&models.User{}).
			Where("username = ?", desiredOwnerUsername).
			First(&owner).Error; err != nil {
			return fmt.Errorf("failed to lookup owner user: %w", err)
		}
		if owner.ClinicId != clinicID {
			return fmt.Errorf("owner user exists but belongs to another clinic (username=%s clinic_id=%s)", owner.Username, owner.ClinicId)
		}
		if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", owner.ID).Updates(map[string]any{
			"password":  string(hashedOwnerPassword),
			"is_active": utils.NewTrue(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update owner user: %w", err)
		}
		_ = owner.RemoveInstanceRedis()

		if !*createDemoUsers {
			return nil
		}

		pass := strings.TrimSpace(*demoPassword)
		if pass == "" {
			pass = strings.TrimSpace(*ownerPassword)
		}
		hashedDemoPassword, err := utils.HashPassword(pass)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}

		prefix := slugify(clinic.Name)
		for j := 1; j <= 5; j++ {
			username := fmt.Sprintf("%s-user%02d@local", prefix, j)
			displayName := fmt.Sprintf("%s User %02d", clinic.Name, j)

			var existing models.User
			err := tx.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).First(&existing).Error
			if err != nil {
				if err != gorm.ErrRecordNotFound {
					return fmt.Errorf("failed to lookup demo user %s: %w", username, err)
				}
				u := models.User{
					ClinicId: clinicID,
					Username: username,
					Name:     displayName,
					Email:    utils.NilIfEmpty(username),
					Password: string(hashedDemoPassword),
					IsActive: utils.NewTrue(),
					RoleId:   ownerRole.ID,
					Role:     models.UserRoleCustom,
				}
				if err := tx.WithContext(ctx).Create(&u).Error; err != nil {
					return fmt.Errorf("failed to create demo user %s: %w", username, err)
				}
				continue
			}

			if existing.ClinicId != clinicID {
				return fmt.Errorf("demo user exists but belongs to another clinic (username=%s clinic_id=%s)", existing.Username, existing.ClinicId)
			}
			if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]any{
				"password":  string(hashedDemoPassword),
				"is_active": utils.NewTrue(),
				"role_id":   ownerRole.ID,
				"role":      models.UserRoleCustom,
				"name":      displayName,
				"email":     utils.NilIfEmpty(username),
			}).Error; err != nil {
				return fmt.Errorf("failed to update demo user %s: %w", username, err)
			}
			_ = existing.RemoveInstanceRedis()
		}
		return nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed transaction failed: %v\n", err)
		os.Exit(1)
	}

	// 3) Optional sample data: a satellite location, three providers and a
	// month of financial rows per location.
	if *withSampleData {
		if err := seedSampleData(ctx, db, clinicID); err != nil {
			fmt.Fprintf(os.Stderr, "sample data seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Seed complete")
	fmt.Printf("ClinicID: %s | ClinicName: %s | OwnerUsername: %s\n", clinicID, clinic.Name, desiredOwnerUsername)
	fmt.Println("OwnerPassword: (set)")
}

func seedSampleData(ctx context.Context, db *gorm.DB, clinicID string) error {
	var locations []models.Location
	if err := db.WithContext(ctx).Model(&models.Location{}).
		Where("clinic_id = ?", clinicID).Find(&locations).Error; err != nil {
		return err
	}
	if len(locations) < 2 {
		satellite, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Satellite Office"})
		if err != nil {
			return err
		}
		locations = append(locations, *satellite)
	}

	var providerCount int64
	if err := db.WithContext(ctx).Model(&models.Provider{}).
		Where("clinic_id = ?", clinicID).Count(&providerCount).Error; err != nil {
		return err
	}
	if providerCount == 0 {
		for _, name := range []string{"Dr. Dana Reyes", "Dr. Omar Patel", "Dr. June Park"} {
			if _, err := models.CreateProvider(ctx, &models.NewProvider{Name: name}); err != nil {
				return err
			}
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, location := range locations {
			for day := 0; day < 30; day++ {
				record := &models.LocationFinancial{
					ClinicId:        clinicID,
					LocationId:      location.ID,
					RecordDate:      today.AddDate(0, 0, -day),
					Production:      decimal.NewFromInt(int64(2500 + (day%7)*310)),
					Adjustments:     decimal.NewFromInt(int64(120 + (day%5)*35)),
					WriteOffs:       decimal.NewFromInt(int64(80 + (day%3)*20)),
					PatientIncome:   decimal.NewFromInt(int64(1400 + (day%6)*180)),
					InsuranceIncome: decimal.NewFromInt(int64(900 + (day%4)*150)),
					Unearned:        decimal.NewFromInt(50),
					NewPatients:     day % 4,
				}
				if _, err := models.UpsertLocationFinancial(tx.WithContext(ctx), record); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
