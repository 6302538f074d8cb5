package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"gorm.io/gorm"
)

// OutboxPostingStatus is the worker/processing-side status exposed to
// clients. It intentionally does not include publish states like SENT.
type OutboxPostingStatus string

const (
	OutboxPostingStatusPending    OutboxPostingStatus = "PENDING"
	OutboxPostingStatusProcessing OutboxPostingStatus = "PROCESSING"
	OutboxPostingStatusFailed     OutboxPostingStatus = "FAILED"
	OutboxPostingStatusDead       OutboxPostingStatus = "DEAD"
	OutboxPostingStatusSucceeded  OutboxPostingStatus = "SUCCEEDED"
)

// OutboxStatus is a UI-facing view of the latest outbox row for a reference.
type OutboxStatus struct {
	RecordId             int                 `json:"record_id"`
	ReferenceType        SyncReferenceType   `json:"reference_type"`
	ReferenceId          int                 `json:"reference_id"`
	PublishStatus        string              `json:"publish_status"`
	ProcessingStatus     OutboxPostingStatus `json:"processing_status"`
	IsProcessed          bool                `json:"is_processed"`
	PublishAttempts      int                 `json:"publish_attempts"`
	ProcessAttempts      int                 `json:"process_attempts"`
	NextAttemptAt        *time.Time          `json:"next_attempt_at"`
	NextProcessAttemptAt *time.Time          `json:"next_process_attempt_at"`
	LastPublishError     *string             `json:"last_publish_error"`
	LastProcessError     *string             `json:"last_process_error"`
	CorrelationId        string              `json:"correlation_id"`
	CreatedAt            time.Time           `json:"created_at"`
	PublishedAt          *time.Time          `json:"published_at"`
	ProcessedAt          *time.Time          `json:"processed_at"`
}

func GetOutboxStatus(ctx context.Context, referenceType SyncReferenceType, referenceId int) (*OutboxStatus, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	var rec SyncMessageRecord
	if err := db.WithContext(ctx).
		Where("clinic_id = ? AND reference_type = ? AND reference_id = ?", clinicId, referenceType, referenceId).
		Order("id DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}

	processing := rec.ProcessingStatus
	if processing == "" {
		if rec.IsProcessed {
			processing = OutboxProcessStatusSucceeded
		} else {
			processing = OutboxProcessStatusPending
		}
	}

	var postingStatus OutboxPostingStatus
	switch processing {
	case OutboxProcessStatusProcessing:
		postingStatus = OutboxPostingStatusProcessing
	case OutboxProcessStatusFailed:
		postingStatus = OutboxPostingStatusFailed
	case OutboxProcessStatusDead:
		postingStatus = OutboxPostingStatusDead
	case OutboxProcessStatusSucceeded:
		postingStatus = OutboxPostingStatusSucceeded
	default:
		// If the row is already processed, always show SUCCEEDED (even if older rows have legacy values).
		if rec.IsProcessed {
			postingStatus = OutboxPostingStatusSucceeded
		} else {
			postingStatus = OutboxPostingStatusPending
		}
	}

	return &OutboxStatus{
		RecordId:             rec.ID,
		ReferenceType:        rec.ReferenceType,
		ReferenceId:          rec.ReferenceId,
		PublishStatus:        rec.PublishStatus,
		ProcessingStatus:     postingStatus,
		IsProcessed:          rec.IsProcessed,
		PublishAttempts:      rec.PublishAttempts,
		ProcessAttempts:      rec.ProcessAttempts,
		NextAttemptAt:        rec.NextAttemptAt,
		NextProcessAttemptAt: rec.NextProcessAttemptAt,
		LastPublishError:     rec.LastPublishError,
		LastProcessError:     rec.LastProcessError,
		CorrelationId:        rec.CorrelationId,
		CreatedAt:            rec.CreatedAt,
		PublishedAt:          rec.PublishedAt,
		ProcessedAt:          rec.ProcessedAt,
	}, nil
}

// GetSyncMessages lists recent outbox rows for the clinic, newest first.
// The status filter matches the processing side.
func GetSyncMessages(ctx context.Context, status *string, limit *int) ([]*SyncMessageRecord, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Where("clinic_id = ?", clinicId)
	if status != nil && *status != "" {
		query = query.Where("processing_status = ?", strings.ToUpper(strings.TrimSpace(*status)))
	}

	max := 50
	if limit != nil && *limit > 0 && *limit <= 200 {
		max = *limit
	}

	var records []*SyncMessageRecord
	if err := query.Order("id DESC").Limit(max).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ReprocessOutbox puts every unprocessed outbox row for a reference back
// in front of the dispatcher and the sync worker. Attempt counts survive
// so the max-attempt guards still apply.
func ReprocessOutbox(ctx context.Context, referenceType SyncReferenceType, referenceId int) (*OutboxStatus, error) {
	clinicId, ok := utils.GetClinicIdFromContext(ctx)
	if !ok || clinicId == "" {
		return nil, errors.New("clinic id is required")
	}

	now := time.Now().UTC()
	db := config.GetDB()

	res := db.WithContext(ctx).
		Model(&SyncMessageRecord{}).
		Where("clinic_id = ? AND reference_type = ? AND reference_id = ? AND is_processed = 0", clinicId, referenceType, referenceId).
		Updates(map[string]interface{}{
			"locked_at":               nil,
			"locked_by":               nil,
			"publish_status":          OutboxPublishStatusPending,
			"next_attempt_at":         nil,
			"processing_status":       OutboxProcessStatusPending,
			"next_process_attempt_at": &now,
			"last_process_error":      nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return GetOutboxStatus(ctx, referenceType, referenceId)
}

// RevertDeadOutboxMessages moves DEAD rows back to PENDING with a fresh
// attempt budget, on both the publish and the processing side.
// Platform-admin operation; it spans every clinic unless one is given.
func RevertDeadOutboxMessages(ctx context.Context, clinicId *string) (int64, error) {
	now := time.Now().UTC()
	db := config.GetDB()

	publishSide := db.WithContext(ctx).
		Model(&SyncMessageRecord{}).
		Where("publish_status = ?", OutboxPublishStatusDead)
	if clinicId != nil && *clinicId != "" {
		publishSide = publishSide.Where("clinic_id = ?", *clinicId)
	}
	res := publishSide.Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusPending,
		"publish_attempts":   0,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	})
	if res.Error != nil {
		return 0, res.Error
	}
	reverted := res.RowsAffected

	processSide := db.WithContext(ctx).
		Model(&SyncMessageRecord{}).
		Where("processing_status = ? AND is_processed = 0", OutboxProcessStatusDead)
	if clinicId != nil && *clinicId != "" {
		processSide = processSide.Where("clinic_id = ?", *clinicId)
	}
	res = processSide.Updates(map[string]interface{}{
		"processing_status":       OutboxProcessStatusPending,
		"process_attempts":        0,
		"next_process_attempt_at": &now,
		"last_process_error":      nil,
	})
	if res.Error != nil {
		return reverted, res.Error
	}
	return reverted + res.RowsAffected, nil
}
