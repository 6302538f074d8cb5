package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"bitbucket.org/dentametrics/practice_backend/workflow"
	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SyncReferenceTypeImportRequest marks inbound spreadsheet payloads from the
// sync connector. It never appears on local outbox rows, which carry the DB
// enum values.
const SyncReferenceTypeImportRequest = "ImportRequest"

var (
	clinicMutexMap = make(map[string]*sync.Mutex)
	globalMutex    = &sync.Mutex{}
)

func RunSyncWorkflow() error {
	logger := config.GetLogger()
	ctx := context.Background()
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return err
	}
	// Specify the number of concurrent processes
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	// Create a callback function to handle messages.
	callback := func(ctx context.Context, msg *pubsub.Message) {
		m := config.PubSubMessage{}
		err := json.Unmarshal(msg.Data, &m)
		if err != nil {
			config.LogError(logger, "syncWorkflow.go", "RunSyncWorkflow", "Unmarshaling pubsub message", msg.Data, err)
			// Malformed payloads never become valid; ack/drop.
			msg.Ack()
			return
		}
		// Basic validation to avoid retry loops on poisoned messages.
		if m.ClinicId == "" || m.ReferenceType == "" {
			config.LogError(logger, "syncWorkflow.go", "RunSyncWorkflow", "Invalid pubsub message (missing required fields)", m, fmt.Errorf("clinic_id/reference_type required"))
			msg.Ack()
			return
		}

		// Get or create the mutex for the current ClinicId
		globalMutex.Lock()
		mutex, exists := clinicMutexMap[m.ClinicId]
		if !exists {
			mutex = &sync.Mutex{}
			clinicMutexMap[m.ClinicId] = mutex
		}
		globalMutex.Unlock()

		// Lock the specific clinic mutex
		mutex.Lock()
		defer mutex.Unlock()

		correlationID := m.CorrelationId
		if correlationID == "" {
			correlationID = msg.ID
		}

		ctx = context.WithValue(ctx, utils.ContextKeyClinicId, m.ClinicId)
		ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
		ctx = context.WithValue(ctx, utils.ContextKeyUserName, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationID)
		if err := ProcessMessage(ctx, logger, m); err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "SyncWorkflow",
				"clinic_id":      m.ClinicId,
				"reference_type": m.ReferenceType,
				"reference_id":   m.ReferenceId,
				"message_id":     msg.ID,
			}).Error("pubsub processing failed: " + err.Error())
			msg.Nack()
			return
		}
		msg.Ack()
	}

	// Receive messages.
	go func() {
		err := sub.Receive(ctx, callback)

		if err != nil {
			config.LogError(logger, "syncWorkflow.go", "RunSyncWorkflow", "Failed to receive messages", nil, err)
		}
	}()

	return nil
}

// ProcessMessage handles one sync message end to end: inbound spreadsheet
// payloads run the import pipeline, locally published events run their
// consumer-side effects under the per-clinic advisory lock.
func ProcessMessage(ctx context.Context, logger *logrus.Logger, m config.PubSubMessage) error {
	// The import pipeline manages its own transaction and clinic lock.
	if m.ReferenceType == SyncReferenceTypeImportRequest {
		return processImportRequest(ctx, logger, m)
	}

	markOutboxProcessing(ctx, m.ID)

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		// Enforce strict per-clinic ordering across instances.
		if err := workflow.AcquireClinicSyncLock(tx.WithContext(ctx), m.ClinicId); err != nil {
			return err
		}
		defer workflow.ReleaseClinicSyncLock(tx.WithContext(ctx), m.ClinicId)

		handlerName := m.ReferenceType
		messageId := strconv.Itoa(m.ID)

		skip, err := workflow.BeginIdempotency(tx.WithContext(ctx), m.ClinicId, handlerName, messageId)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}

		if err := ProcessSyncEvent(tx.WithContext(ctx), logger, m); err != nil {
			_ = workflow.MarkIdempotencyFailed(tx.WithContext(ctx), m.ClinicId, handlerName, messageId, err)
			return err
		}
		if err := workflow.MarkIdempotencySucceeded(tx.WithContext(ctx), m.ClinicId, handlerName, messageId); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if dead := markOutboxProcessFailure(ctx, logger, m, err); dead {
			stampDataSourceFailedOnDead(ctx, logger, m)
		}
		return err
	}

	markOutboxProcessSuccess(ctx, logger, m)
	return nil
}

// ProcessSyncEvent applies the consumer-side effects of locally published
// outbox events. Report cache keys are parameterized by date range, so the
// entity hooks cannot enumerate them; invalidation happens here instead.
func ProcessSyncEvent(tx *gorm.DB, logger *logrus.Logger, m config.PubSubMessage) error {
	switch m.ReferenceType {
	case string(models.SyncReferenceTypeImportBatch),
		string(models.SyncReferenceTypeLocationFinancial):
		// Financial rows feed every report surface.
		return config.RemoveRedisKeysByPattern("report:*:" + m.ClinicId + ":*")
	case string(models.SyncReferenceTypeGoal):
		if err := config.RemoveRedisKeysByPattern("report:goal_progress:" + m.ClinicId + ":*"); err != nil {
			return err
		}
		return config.RemoveRedisKeysByPattern("report:dashboard:" + m.ClinicId + ":*")
	case string(models.SyncReferenceTypeDataSource):
		return nil
	}
	return nil
}

// processImportRequest feeds a spreadsheet payload through the batch import
// pipeline. Per-record failures are reported inside the summary and never
// bubble up here; only batch-level failures trigger a redelivery.
func processImportRequest(ctx context.Context, logger *logrus.Logger, m config.PubSubMessage) error {
	if !config.SyncAutoImportFor("FINANCIALS") {
		logger.WithFields(logrus.Fields{
			"field":        "SyncWorkflow",
			"clinic_id":    m.ClinicId,
			"reference_id": m.ReferenceId,
		}).Info("sync import skipped: FINANCIALS not in SYNC_AUTO_IMPORT_KINDS")
		return nil
	}

	var input models.NewFinancialImport
	if err := json.Unmarshal(m.NewObj, &input); err != nil {
		config.LogError(logger, "syncWorkflow.go", "processImportRequest", "Unmarshaling import payload", m.NewObj, err)
		// Malformed payloads never become valid; drop.
		return nil
	}

	input.ClinicId = m.ClinicId
	if input.DataSourceId == nil && m.ReferenceId > 0 {
		refId := m.ReferenceId
		input.DataSourceId = &refId
	}

	summary, err := models.ImportFinancialRecords(ctx, &input)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"field":          "SyncWorkflow",
		"clinic_id":      m.ClinicId,
		"reference_id":   m.ReferenceId,
		"total_records":  summary.Validation.TotalRecords,
		"valid_records":  summary.Validation.ValidRecords,
		"record_errors":  summary.Validation.Errors,
		"record_warning": summary.Validation.Warnings,
	}).Info("sync import processed")
	return nil
}
