package models

func (d DataSource) GetClinicId() string {
	return d.ClinicId
}

func (g Goal) GetClinicId() string {
	return g.ClinicId
}

func (g GoalTemplate) GetClinicId() string {
	return g.ClinicId
}

func (h History) GetClinicId() string {
	return h.ClinicId
}

func (l Location) GetClinicId() string {
	return l.ClinicId
}

func (l LocationFinancial) GetClinicId() string {
	return l.ClinicId
}

func (m MetricDefinition) GetClinicId() string {
	return m.ClinicId
}

func (m Module) GetClinicId() string {
	return m.ClinicId
}

func (p Provider) GetClinicId() string {
	return p.ClinicId
}

func (r Role) GetClinicId() string {
	return r.ClinicId
}

func (r RoleModule) GetClinicId() string {
	return r.ClinicId
}

func (s SyncMessageRecord) GetClinicId() string {
	return s.ClinicId
}

func (u User) GetClinicId() string {
	return u.ClinicId
}
