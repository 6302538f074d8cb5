package models

import (
	"bitbucket.org/dentametrics/practice_backend/config"
	"gorm.io/gorm"
)

func (l *Location) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, l.ID, l, "Created Location"); err != nil {
		return err
	}
	if err := l.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (l *Location) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, l.ID, l, "Updated Location"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(l); err != nil {
		return err
	}

	return nil
}

func (l *Location) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, l.ID, l, "Deleted Location"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(l); err != nil {
		return err
	}

	return nil
}

func (p *Provider) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, p.ID, p, "Created Provider"); err != nil {
		return err
	}
	if err := p.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (p *Provider) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, p.ID, p, "Updated Provider"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(p); err != nil {
		return err
	}

	return nil
}

func (p *Provider) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, p.ID, p, "Deleted Provider"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(p); err != nil {
		return err
	}

	return nil
}

func (s *Specialty) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, s.ID, s, "Created Specialty"); err != nil {
		return err
	}

	return nil
}

func (s *Specialty) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, s.ID, s, "Updated Specialty"); err != nil {
		return err
	}
	return nil
}

func (s *Specialty) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, s.ID, s, "Deleted Specialty"); err != nil {
		return err
	}
	return nil
}

func (m *MetricDefinition) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, m.ID, m, "Created MetricDefinition"); err != nil {
		return err
	}
	if err := m.RemoveAllRedis(); err != nil {
		return err
	}

	if err := config.RemoveRedisKey("SystemMetrics:" + m.ClinicId); err != nil {
		return err
	}
	return nil
}

func (m *MetricDefinition) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, m.ID, m, "Updated MetricDefinition"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(m); err != nil {
		return err
	}

	if err := config.RemoveRedisKey("SystemMetrics:" + m.ClinicId); err != nil {
		return err
	}
	return nil
}

func (m *MetricDefinition) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, m.ID, m, "Deleted MetricDefinition"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(m); err != nil {
		return err
	}

	if err := config.RemoveRedisKey("SystemMetrics:" + m.ClinicId); err != nil {
		return err
	}
	return nil
}

func (d *DataSource) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, d.ID, d, "Created DataSource"); err != nil {
		return err
	}
	if err := d.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (d *DataSource) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, d.ID, d, "Updated DataSource"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(d); err != nil {
		return err
	}

	return nil
}

func (d *DataSource) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, d.ID, d, "Deleted DataSource"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(d); err != nil {
		return err
	}

	return nil
}

func (g *GoalTemplate) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, g.ID, g, "Created GoalTemplate"); err != nil {
		return err
	}
	if err := g.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (g *GoalTemplate) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, g.ID, g, "Updated GoalTemplate"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(g); err != nil {
		return err
	}

	return nil
}

func (g *GoalTemplate) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, g.ID, g, "Deleted GoalTemplate"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(g); err != nil {
		return err
	}

	return nil
}

func (m *Module) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, m.ID, m, "Created Module"); err != nil {
		return err
	}

	return nil
}

func (m *Module) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, m.ID, m, "Updated Module"); err != nil {
		return err
	}
	return nil
}

func (m *Module) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, m.ID, m, "Deleted Module"); err != nil {
		return err
	}
	return nil
}

func (r *Role) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, r.ID, r, "Created Role"); err != nil {
		return err
	}
	if err := r.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (r *Role) BeforeUpdate(tx *gorm.DB) (err error) {
	if err := SaveHistoryUpdate(tx, r.ID, r, "Updated Role"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(r); err != nil {
		return err
	}

	return nil
}

func (r *Role) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, r.ID, r, "Deleted Role"); err != nil {
		return err
	}
	if err := RemoveRedisBoth(r); err != nil {
		return err
	}

	return nil
}

func (r *RoleModule) AfterCreate(tx *gorm.DB) (err error) {
	return nil
}

func (r *RoleModule) BeforeUpdate(tx *gorm.DB) (err error) {

	return nil
}

func (r *RoleModule) AfterDelete(tx *gorm.DB) (err error) {

	return nil
}

func (u *User) AfterCreate(tx *gorm.DB) (err error) {
	if u.Role == UserRoleCustom {
		return createHistory(tx, "REGISTER", u.ID, "users", nil, u, "created custom user")
	}

	var history History
	history.ClinicId = u.ClinicId
	history.ActionType = "REGISTER"
	history.ReferenceID = u.ID
	history.ReferenceType = "users"
	if u.Role == UserRoleOwner {
		history.Description = "created owner user"
	} else {
		history.Description = "created admin user"
	}

	// create history
	if err := tx.Create(&history).Error; err != nil {
		return err
	}

	// clearing cache
	if err := u.RemoveAllRedis(); err != nil {
		return err
	}

	return nil
}

func (u *User) BeforeUpdate(tx *gorm.DB) (err error) {
	// creating history
	if err := SaveHistoryUpdate(tx, u.ID, u, "Updated User"); err != nil {
		return err
	}
	// clearing cache
	if err := RemoveRedisBoth(u); err != nil {
		return err
	}

	return nil
}

func (u *User) AfterDelete(tx *gorm.DB) (err error) {
	// creating history
	if err := SaveHistoryDelete(tx, u.ID, u, "Deleted User"); err != nil {
		return err
	}
	// clearing cache
	if err := RemoveRedisBoth(u); err != nil {
		return err
	}

	return nil
}
