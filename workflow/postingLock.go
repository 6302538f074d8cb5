package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireClinicSyncLock serializes sync processing per clinic across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the processing transaction.
func AcquireClinicSyncLock(tx *gorm.DB, clinicId string) error {
	lockName := fmt.Sprintf("sync:%s", clinicId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire sync lock for clinic_id=%s", clinicId)
	}
	return nil
}

func ReleaseClinicSyncLock(tx *gorm.DB, clinicId string) {
	lockName := fmt.Sprintf("sync:%s", clinicId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
