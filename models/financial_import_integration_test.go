package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/shopspring/decimal"
)

// End to end over a real MySQL + Redis: one import batch must create rows
// with derived fields computed, stamp the data source, and leave a PENDING
// outbox record. A re-import of the same keys must update in place.
func TestFinancialImport_EndToEndUpsert(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME_2", "practice_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	// Model hooks write History records and require user context.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	// Creating a clinic seeds the primary location, the Owner role/user,
	// the permission modules and the system metric definitions.
	clinic, err := models.CreateClinic(ctx, &models.NewClinic{
		Name:  "Test Clinic",
		Email: "owner@test.local",
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

	var main models.Location
	if err := db.WithContext(ctx).Where("clinic_id = ? AND name = ?", clinicID, "Main Clinic").First(&main).Error; err != nil {
		t.Fatalf("fetch primary location: %v", err)
	}

	provider, err := models.CreateProvider(ctx, &models.NewProvider{Name: "Dr. Reyes"})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	source, err := models.CreateDataSource(ctx, &models.NewDataSource{
		Name: "Front Desk Sheet",
		Kind: models.DataSourceKindSheets,
	})
	if err != nil {
		t.Fatalf("CreateDataSource: %v", err)
	}

	// 1) First import: two good rows, one unknown location, one bad date.
	input := &models.NewFinancialImport{
		DataSourceId: &source.ID,
		Records: []*models.FinancialRecordInput{
			financialRecord("2026-03-02", "Main Clinic", "5000", "300", "150", "1800", "2400", "3", provider.Name),
			financialRecord("2026-03-03", "main clinic", "4200", "0", "0", "1500", "2000", "1", ""),
			financialRecord("2026-03-02", "Nowhere Clinic", "100", "0", "0", "0", "0", "0", ""),
			financialRecord("03/02/2026", "Main Clinic", "100", "0", "0", "0", "0", "0", ""),
		},
	}
	summary, err := models.ImportFinancialRecords(ctx, input)
	if err != nil {
		t.Fatalf("ImportFinancialRecords: %v", err)
	}

	if summary.Success {
		t.Fatalf("batch with failures should not be success: %+v", summary)
	}
	if summary.Results == nil || summary.Results.Created != 2 || summary.Results.Failed != 1 {
		t.Fatalf("unexpected result counts: %+v", summary.Results)
	}
	if summary.Validation.TotalRecords != 4 || summary.Validation.ValidRecords != 3 {
		t.Fatalf("unexpected validation counts: %+v", summary.Validation)
	}

	// Derived fields must be stored, not echoed.
	var row models.LocationFinancial
	if err := db.Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicID, main.ID, "2026-03-02").
		First(&row).Error; err != nil {
		t.Fatalf("fetch imported row: %v", err)
	}
	if !row.NetProduction.Equal(decimal.NewFromInt(4550)) {
		t.Fatalf("net production: expected 4550, got %s", row.NetProduction)
	}
	if !row.TotalCollections.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("total collections: expected 4200, got %s", row.TotalCollections)
	}
	if row.ProviderId == nil || *row.ProviderId != provider.ID {
		t.Fatalf("provider attribution lost: %v", row.ProviderId)
	}

	// The data source carries the partial outcome.
	var stamped models.DataSource
	if err := db.Where("clinic_id = ?", clinicID).First(&stamped, source.ID).Error; err != nil {
		t.Fatalf("fetch data source: %v", err)
	}
	if stamped.LastSyncStatus != models.SyncRunStatusPartial || stamped.LastSyncAt == nil {
		t.Fatalf("data source not stamped: status=%s at=%v", stamped.LastSyncStatus, stamped.LastSyncAt)
	}

	// The batch left a PENDING outbox record for the dispatcher.
	var outbox models.SyncMessageRecord
	if err := db.Where("clinic_id = ? AND reference_type = ?", clinicID, models.SyncReferenceTypeImportBatch).
		Order("id DESC").First(&outbox).Error; err != nil {
		t.Fatalf("fetch outbox record: %v", err)
	}
	if outbox.PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("outbox publish status: expected PENDING, got %s", outbox.PublishStatus)
	}
	if outbox.IsProcessed {
		t.Fatal("fresh outbox record must not be processed")
	}

	// 2) Re-import the same key with new figures: updated, not duplicated.
	second := &models.NewFinancialImport{
		Records: []*models.FinancialRecordInput{
			financialRecord("2026-03-02", "Main Clinic", "6000", "300", "150", "2000", "2500", "4", ""),
		},
	}
	secondSummary, err := models.ImportFinancialRecords(ctx, second)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if secondSummary.Results == nil || secondSummary.Results.Updated != 1 || secondSummary.Results.Created != 0 {
		t.Fatalf("re-import should update in place: %+v", secondSummary.Results)
	}

	var count int64
	if err := db.Model(&models.LocationFinancial{}).
		Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicID, main.ID, "2026-03-02").
		Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row per key, got %d", count)
	}
	if err := db.Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicID, main.ID, "2026-03-02").
		First(&row).Error; err != nil {
		t.Fatalf("fetch updated row: %v", err)
	}
	if !row.NetProduction.Equal(decimal.NewFromInt(5550)) {
		t.Fatalf("updated net production: expected 5550, got %s", row.NetProduction)
	}

	// 3) upsert=false must skip the occupied key and report it.
	noUpsert := false
	third := &models.NewFinancialImport{
		Upsert: &noUpsert,
		Records: []*models.FinancialRecordInput{
			financialRecord("2026-03-02", "Main Clinic", "1", "0", "0", "0", "0", "0", ""),
		},
	}
	thirdSummary, err := models.ImportFinancialRecords(ctx, third)
	if err != nil {
		t.Fatalf("no-upsert import: %v", err)
	}
	if thirdSummary.Results == nil || thirdSummary.Results.Skipped != 1 {
		t.Fatalf("occupied key should be skipped: %+v", thirdSummary.Results)
	}
	if len(thirdSummary.Warnings) == 0 {
		t.Fatal("skip must be reported as a warning")
	}

	// 4) Dry run must not write.
	dry := &models.NewFinancialImport{
		DryRun: true,
		Records: []*models.FinancialRecordInput{
			financialRecord("2026-04-01", "Main Clinic", "100", "0", "0", "0", "0", "0", ""),
		},
	}
	drySummary, err := models.ImportFinancialRecords(ctx, dry)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !drySummary.Success || !drySummary.DryRun {
		t.Fatalf("dry run summary wrong: %+v", drySummary)
	}
	var dryCount int64
	if err := db.Model(&models.LocationFinancial{}).
		Where("clinic_id = ? AND record_date = ?", clinicID, "2026-04-01").
		Count(&dryCount).Error; err != nil {
		t.Fatalf("count dry run rows: %v", err)
	}
	if dryCount != 0 {
		t.Fatalf("dry run wrote %d rows", dryCount)
	}

	// 5) Inactive location and unknown provider are soft: the row is
	// written, both are reported as warnings.
	satellite, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Satellite Office"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if _, err := models.ToggleActiveLocation(ctx, satellite.ID, false); err != nil {
		t.Fatalf("ToggleActiveLocation: %v", err)
	}

	fifth := &models.NewFinancialImport{
		Records: []*models.FinancialRecordInput{
			financialRecord("2026-03-05", "Satellite Office", "800", "0", "0", "300", "400", "1", "Dr. Nobody"),
		},
	}
	fifthSummary, err := models.ImportFinancialRecords(ctx, fifth)
	if err != nil {
		t.Fatalf("inactive location import: %v", err)
	}
	if fifthSummary.Results == nil || fifthSummary.Results.Created != 1 {
		t.Fatalf("inactive location row should still be written: %+v", fifthSummary.Results)
	}
	var sawInactive, sawProvider bool
	for _, warning := range fifthSummary.Warnings {
		if strings.Contains(warning, "inactive") {
			sawInactive = true
		}
		if strings.Contains(warning, "Dr. Nobody") {
			sawProvider = true
		}
	}
	if !sawInactive || !sawProvider {
		t.Fatalf("expected inactive-location and unknown-provider warnings, got %v", fifthSummary.Warnings)
	}
	var satelliteRow models.LocationFinancial
	if err := db.Where("clinic_id = ? AND location_id = ? AND record_date = ?", clinicID, satellite.ID, "2026-03-05").
		First(&satelliteRow).Error; err != nil {
		t.Fatalf("fetch inactive location row: %v", err)
	}
	if satelliteRow.ProviderId != nil {
		t.Fatalf("unknown provider must not be attributed: %v", satelliteRow.ProviderId)
	}
}

func financialRecord(date, location, production, adjustments, writeOffs, patientIncome, insuranceIncome, newPatients, providerName string) *models.FinancialRecordInput {
	return &models.FinancialRecordInput{
		Date:            date,
		LocationName:    location,
		Production:      flexDecimal(production),
		Adjustments:     flexDecimal(adjustments),
		WriteOffs:       flexDecimal(writeOffs),
		PatientIncome:   flexDecimal(patientIncome),
		InsuranceIncome: flexDecimal(insuranceIncome),
		NewPatients:     flexDecimal(newPatients),
		ProviderName:    providerName,
	}
}

func flexDecimal(value string) utils.FlexDecimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return utils.FlexDecimal{Present: true, Raw: value}
	}
	return utils.FlexDecimal{Present: true, Valid: true, Value: d, Raw: value}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("practice-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("practice-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=practice_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
