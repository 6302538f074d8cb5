package models

import (
	"bitbucket.org/dentametrics/practice_backend/utils"
)

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list & map if exists
}

// remove both item & list + map
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

/* admin resources */
func (obj Specialty) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Specialty](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Specialty) RemoveAllRedis() error {
	return utils.ClearRedisAdmin[Specialty]()
}

/* clinic resources */
func (obj Location) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Location](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Location) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllLocation](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllLocation](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj Provider) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Provider](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Provider) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllProvider](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllProvider](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj MetricDefinition) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[MetricDefinition](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj MetricDefinition) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllMetricDefinition](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllMetricDefinition](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj GoalTemplate) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[GoalTemplate](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj GoalTemplate) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllGoalTemplate](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllGoalTemplate](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj DataSource) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[DataSource](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj DataSource) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllDataSource](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllDataSource](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj Goal) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Goal](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Goal) RemoveAllRedis() error {
	return nil
}

func (obj Module) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Module](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Module) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllModule](obj.ClinicId); err != nil {
		return err
	}
	return nil
}

func (obj Role) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Role](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Role) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllRole](obj.ClinicId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllRole](obj.ClinicId); err != nil {
		return err
	}
	return nil
}
