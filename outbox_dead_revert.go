package main

import (
	"context"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func ensureClinicContext(ctx context.Context, clinicId string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if clinicId == "" {
		return ctx
	}
	if _, ok := utils.GetClinicIdFromContext(ctx); !ok {
		ctx = context.WithValue(ctx, utils.ContextKeyClinicId, clinicId)
	}
	return ctx
}

// stampDataSourceFailedOnDead surfaces a DEAD import batch on its data
// source. Batch events carry the data source id as the reference id; manual
// imports carry zero and are skipped.
func stampDataSourceFailedOnDead(ctx context.Context, logger *logrus.Logger, msg config.PubSubMessage) {
	if msg.ReferenceType != string(models.SyncReferenceTypeImportBatch) {
		return
	}
	if msg.ReferenceId <= 0 {
		return
	}

	ctx = ensureClinicContext(ctx, msg.ClinicId)

	dataSource, err := models.GetDataSource(ctx, msg.ReferenceId)
	if err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"field":          "OutboxDeadRevert",
				"clinic_id":      msg.ClinicId,
				"reference_type": msg.ReferenceType,
				"reference_id":   msg.ReferenceId,
			}).Warn("failed to load data source for DEAD stamp: " + err.Error())
		}
		return
	}
	if dataSource.LastSyncStatus == models.SyncRunStatusFailed {
		return
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		return models.StampDataSourceSync(ctx, tx, msg.ClinicId, msg.ReferenceId, models.SyncRunStatusFailed, time.Now().UTC())
	})
	if err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"field":          "OutboxDeadRevert",
				"clinic_id":      msg.ClinicId,
				"reference_type": msg.ReferenceType,
				"reference_id":   msg.ReferenceId,
			}).Warn("failed to stamp data source Failed after DEAD message: " + err.Error())
		}
		return
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":          "OutboxDeadRevert",
			"clinic_id":      msg.ClinicId,
			"reference_type": msg.ReferenceType,
			"reference_id":   msg.ReferenceId,
		}).Info("stamped data source Failed after DEAD message")
	}
}
