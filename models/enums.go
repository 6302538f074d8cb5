package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type TimePeriod string

const (
	TimePeriodDaily     TimePeriod = "daily"
	TimePeriodWeekly    TimePeriod = "weekly"
	TimePeriodMonthly   TimePeriod = "monthly"
	TimePeriodQuarterly TimePeriod = "quarterly"
	TimePeriodYearly    TimePeriod = "yearly"
)

// convert enum to send response
func (p TimePeriod) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(p))), nil
}

// convert input to enum type
func (p *TimePeriod) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("time period must be string")
	}

	timePeriods := map[string]TimePeriod{
		"daily":     TimePeriodDaily,
		"weekly":    TimePeriodWeekly,
		"monthly":   TimePeriodMonthly,
		"quarterly": TimePeriodQuarterly,
		"yearly":    TimePeriodYearly,
	}

	var ok bool
	*p, ok = timePeriods[str]
	if !ok {
		return errors.New("invalid time period")
	}
	return nil
}

type MetricUnit string

const (
	MetricUnitCurrency MetricUnit = "currency"
	MetricUnitCount    MetricUnit = "count"
	MetricUnitPercent  MetricUnit = "percent"
)

func (u MetricUnit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(u))), nil
}

func (u *MetricUnit) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("metric unit must be string")
	}

	metricUnits := map[string]MetricUnit{
		"currency": MetricUnitCurrency,
		"count":    MetricUnitCount,
		"percent":  MetricUnitPercent,
	}

	var ok bool
	*u, ok = metricUnits[str]
	if !ok {
		return errors.New("invalid metric unit")
	}
	return nil
}

type GoalMode string

const (
	GoalModeStandalone GoalMode = "standalone"
	GoalModeTemplate   GoalMode = "template"
)

func (m GoalMode) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(m))), nil
}

func (m *GoalMode) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("goal mode must be string")
	}
	// Allow blank (unset) so templateId can drive the choice.
	if str == "" {
		*m = ""
		return nil
	}
	switch str {
	case "standalone":
		*m = GoalModeStandalone
	case "template":
		*m = GoalModeTemplate
	default:
		return errors.New("invalid goal mode")
	}
	return nil
}

type DataSourceKind string

const (
	DataSourceKindSheets DataSourceKind = "sheets"
	DataSourceKindCsv    DataSourceKind = "csv"
	DataSourceKindManual DataSourceKind = "manual"
)

func (k DataSourceKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(k))), nil
}

func (k *DataSourceKind) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("data source kind must be string")
	}

	dataSourceKinds := map[string]DataSourceKind{
		"sheets": DataSourceKindSheets,
		"csv":    DataSourceKindCsv,
		"manual": DataSourceKindManual,
	}

	var ok bool
	*k, ok = dataSourceKinds[str]
	if !ok {
		return errors.New("invalid data source kind")
	}
	return nil
}

type SyncRunStatus string

const (
	SyncRunStatusSuccess SyncRunStatus = "Success"
	SyncRunStatusPartial SyncRunStatus = "Partial"
	SyncRunStatusFailed  SyncRunStatus = "Failed"
)

func (s SyncRunStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *SyncRunStatus) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("sync run status must be string")
	}

	syncRunStatus := map[string]SyncRunStatus{
		"Success": SyncRunStatusSuccess,
		"Partial": SyncRunStatusPartial,
		"Failed":  SyncRunStatusFailed,
	}

	var ok bool
	*s, ok = syncRunStatus[str]
	if !ok {
		return errors.New("invalid sync run status")
	}
	return nil
}

type SyncReferenceType string

const (
	SyncReferenceTypeLocationFinancial SyncReferenceType = "LF"
	SyncReferenceTypeGoal              SyncReferenceType = "GL"
	SyncReferenceTypeImportBatch       SyncReferenceType = "IB"
	SyncReferenceTypeDataSource        SyncReferenceType = "DS"
)

func (t SyncReferenceType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *SyncReferenceType) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("sync reference type must be string")
	}

	syncReferenceType := map[string]SyncReferenceType{
		"LF": SyncReferenceTypeLocationFinancial,
		"GL": SyncReferenceTypeGoal,
		"IB": SyncReferenceTypeImportBatch,
		"DS": SyncReferenceTypeDataSource,
	}

	var ok bool
	*t, ok = syncReferenceType[str]
	if !ok {
		return errors.New("invalid sync reference type")
	}
	return nil
}

type PubSubMessageAction string

const (
	PubSubMessageActionCreate PubSubMessageAction = "C"
	PubSubMessageActionUpdate PubSubMessageAction = "U"
	PubSubMessageActionDelete PubSubMessageAction = "D"
)

// convert enum to send response
func (t PubSubMessageAction) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *PubSubMessageAction) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("pub sub message action must be string")
	}
	switch str {
	case "C":
		*t = PubSubMessageActionCreate
	case "U":
		*t = PubSubMessageActionUpdate
	case "D":
		*t = PubSubMessageActionDelete
	default:
		return errors.New("invalid pub sub message action")
	}
	return nil
}

type FiscalYear string

const (
	FiscalYearJan FiscalYear = "Jan"
	FiscalYearFeb FiscalYear = "Feb"
	FiscalYearMar FiscalYear = "Mar"
	FiscalYearApr FiscalYear = "Apr"
	FiscalYearMay FiscalYear = "May"
	FiscalYearJun FiscalYear = "Jun"
	FiscalYearJul FiscalYear = "Jul"
	FiscalYearAug FiscalYear = "Aug"
	FiscalYearSep FiscalYear = "Sep"
	FiscalYearOct FiscalYear = "Oct"
	FiscalYearNov FiscalYear = "Nov"
	FiscalYearDec FiscalYear = "Dec"
)

func (y FiscalYear) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(y))), nil
}

func (y *FiscalYear) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("FiscalYear must be string")
	}

	fiscalYears := map[string]FiscalYear{
		"Jan": FiscalYearJan,
		"Feb": FiscalYearFeb,
		"Mar": FiscalYearMar,
		"Apr": FiscalYearApr,
		"May": FiscalYearMay,
		"Jun": FiscalYearJun,
		"Jul": FiscalYearJul,
		"Aug": FiscalYearAug,
		"Sep": FiscalYearSep,
		"Oct": FiscalYearOct,
		"Nov": FiscalYearNov,
		"Dec": FiscalYearDec,
	}

	var ok bool
	*y, ok = fiscalYears[str]
	if !ok {
		return errors.New("invalid FiscalYear")
	}
	return nil
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleOwner  UserRole = "O"
	UserRoleCustom UserRole = "C"
)

func (p UserRole) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(p))), nil
}

func (p *UserRole) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("user role must be string")
	}

	userRole := map[string]UserRole{
		"A": UserRoleAdmin,
		"O": UserRoleOwner,
		"C": UserRoleCustom,
	}

	var ok bool
	*p, ok = userRole[str]
	if !ok {
		return errors.New("invalid user role")
	}
	return nil
}

type DateString time.Time

func (t DateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02"))), nil
}

// Parse the string into time.Time object
func (t *DateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("DateString must be string")
	}

	day, err := time.Parse("2006-01-02", str)
	if err != nil {
		return errors.New("error parsing date")
	}
	*t = DateString(day)

	return nil
}

// Value implements the driver.Valuer interface
func (t DateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *DateString) Scan(value interface{}) error {
	if value == nil {
		*t = DateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = DateString(v)
	default:
		return fmt.Errorf("cannot convert %T to DateString", value)
	}
	return nil
}

func (t *DateString) SetDefaultNowIfNil() *DateString {
	if t == nil {
		now := DateString(time.Now())
		return &now
	}
	return t
}
