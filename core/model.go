package core

import "time"

const (
	StatusStaged    = "staged"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

const (
	QueuePending   = "PENDING"
	QueueProcessed = "PROCESSED"
)

// StagingRecord is one day of attendance for one employee, as received from
// the upstream attendance system. Only Status and Notes are ever updated;
// the rest is immutable once staged.
type StagingRecord struct {
	ID string `gorm:"primaryKey;column:id" json:"id"`

	EmployeeIDVenus string `gorm:"column:employee_id_venus;index" json:"employee_id_venus"`
	EmployeeIDPtrj  string `gorm:"column:employee_id_ptrj;index" json:"employee_id_ptrj"`
	EmployeeName    string `gorm:"column:employee_name;index" json:"employee_name"`

	Date      string `gorm:"column:date;index" json:"date"` // yyyy-MM-dd
	DayOfWeek string `gorm:"column:day_of_week" json:"day_of_week"`
	Shift     string `gorm:"column:shift" json:"shift"`
	CheckIn   string `gorm:"column:check_in" json:"check_in"`
	CheckOut  string `gorm:"column:check_out" json:"check_out"`

	RegularHours  float64 `gorm:"column:regular_hours" json:"regular_hours"`
	OvertimeHours float64 `gorm:"column:overtime_hours" json:"overtime_hours"`
	TotalHours    float64 `gorm:"column:total_hours" json:"total_hours"`

	TaskCode     string `gorm:"column:task_code" json:"task_code"`
	StationCode  string `gorm:"column:station_code" json:"station_code"`
	MachineCode  string `gorm:"column:machine_code" json:"machine_code"`
	ExpenseCode  string `gorm:"column:expense_code" json:"expense_code"`
	RawChargeJob string `gorm:"column:raw_charge_job" json:"raw_charge_job"`

	Status         string `gorm:"column:status;index;default:staged" json:"status"`
	Notes          string `gorm:"column:notes" json:"notes"`
	SourceRecordID string `gorm:"column:source_record_id" json:"source_record_id"`

	CreatedAt time.Time `gorm:"column:created_at;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (StagingRecord) TableName() string {
	return "staging_attendance"
}

// TransferRecord is the immutable audit row written once per transferred
// fact. RecordHash carries the uniqueness; a second transfer of the same
// fact must never produce a second row.
type TransferRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RecordHash string `gorm:"column:record_hash;uniqueIndex;size:64;not null" json:"record_hash"`

	EmployeeIDPtrj string  `gorm:"column:employee_id_ptrj;index" json:"employee_id_ptrj"`
	EmployeeName   string  `gorm:"column:employee_name" json:"employee_name"`
	Date           string  `gorm:"column:date" json:"date"`
	RegularHours   float64 `gorm:"column:regular_hours" json:"regular_hours"`
	OvertimeHours  float64 `gorm:"column:overtime_hours" json:"overtime_hours"`
	TotalHours     float64 `gorm:"column:total_hours" json:"total_hours"`

	Status        string    `gorm:"column:status" json:"status"`
	TransferredAt time.Time `gorm:"column:transferred_at" json:"transferred_at"`
	CreatedAt     time.Time `gorm:"column:created_at;<-:create" json:"created_at"`
}

func (TransferRecord) TableName() string {
	return "transfer_history"
}

// ValidationLog records every validation attempt against the mill database,
// online or offline, matched or not.
type ValidationLog struct {
	ID uint `gorm:"primaryKey;autoIncrement;column:id" json:"id"`

	EmployeeIDPtrj string `gorm:"column:employee_id_ptrj;index" json:"employee_id_ptrj"`
	EmployeeName   string `gorm:"column:employee_name" json:"employee_name"`
	Date           string `gorm:"column:date" json:"date"`
	TrxDate        string `gorm:"column:trx_date" json:"trx_date"`

	ExpectedRegular  float64 `gorm:"column:expected_regular" json:"expected_regular"`
	ExpectedOvertime float64 `gorm:"column:expected_overtime" json:"expected_overtime"`
	ActualRegular    float64 `gorm:"column:actual_regular" json:"actual_regular"`
	ActualOvertime   float64 `gorm:"column:actual_overtime" json:"actual_overtime"`

	Status           string `gorm:"column:status;index" json:"status"`
	ConnectionStatus string `gorm:"column:connection_status" json:"connection_status"`
	MillDatabase     string `gorm:"column:mill_database" json:"mill_database"`
	Message          string `gorm:"column:message" json:"message"`

	CreatedAt time.Time `gorm:"column:created_at;<-:create" json:"created_at"`
}

func (ValidationLog) TableName() string {
	return "validation_logs"
}

// OfflineQueueEntry holds a validation deferred because the mill database
// was unreachable.
type OfflineQueueEntry struct {
	ID uint `gorm:"primaryKey;autoIncrement;column:id" json:"id"`

	EmployeeIDPtrj string  `gorm:"column:employee_id_ptrj;index" json:"employee_id_ptrj"`
	EmployeeName   string  `gorm:"column:employee_name" json:"employee_name"`
	Date           string  `gorm:"column:date" json:"date"`
	RegularHours   float64 `gorm:"column:regular_hours" json:"regular_hours"`
	OvertimeHours  float64 `gorm:"column:overtime_hours" json:"overtime_hours"`

	Status      string     `gorm:"column:status;index;default:PENDING" json:"status"`
	RetryCount  int        `gorm:"column:retry_count" json:"retry_count"`
	QueuedAt    time.Time  `gorm:"column:queued_at" json:"queued_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at"`
}

func (OfflineQueueEntry) TableName() string {
	return "offline_queue"
}
