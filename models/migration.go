package models

import (
	"log"

	"bitbucket.org/dentametrics/practice_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Clinic{}, &Location{},
		&Specialty{}, &Provider{},
		&MetricDefinition{}, &DataSource{}, &LocationFinancial{},
		&Goal{}, &GoalTemplate{},
		&History{},
		&Module{}, &Role{}, &RoleModule{},
		&User{},
		&SyncMessageRecord{}, &IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
