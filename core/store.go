package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"ptrj.com/venus/utils"
)

// Store is the local bookkeeping database: staged records, transfer history,
// validation logs and the offline queue, all in one SQLite file.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func OpenStore(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}

	if err := db.AutoMigrate(
		&StagingRecord{},
		&TransferRecord{},
		&ValidationLog{},
		&OfflineQueueEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate staging database: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// --- staging records ---

type StagingFilter struct {
	EmployeeName string
	DateFrom     string
	DateTo       string
	Status       string
	Limit        int
	Offset       int
}

func (s *Store) InsertStaging(records []StagingRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.CreateInBatches(records, 100).Error
}

func (s *Store) StagingByIDs(ids []string) ([]StagingRecord, error) {
	var records []StagingRecord
	if err := s.db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// SearchStaging returns one page of staging records plus the total count for
// the same filter. Status defaults to staged; "all" disables the filter.
func (s *Store) SearchStaging(f StagingFilter) ([]StagingRecord, int64, error) {
	q := s.db.Model(&StagingRecord{})

	status := f.Status
	if status == "" {
		status = StatusStaged
	}
	if status != "all" {
		q = q.Where("status = ?", status)
	}
	if f.EmployeeName != "" {
		q = q.Where("employee_name LIKE ?", "%"+f.EmployeeName+"%")
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var records []StagingRecord
	err := q.Order("date DESC, employee_name ASC").
		Limit(limit).Offset(f.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// EmployeeGroup is the grouped view used by the data-grouped endpoint: one
// identity block per employee with their attendance rows.
type EmployeeGroup struct {
	EmployeeIDVenus string          `json:"employee_id_venus"`
	EmployeeIDPtrj  string          `json:"employee_id_ptrj"`
	EmployeeName    string          `json:"employee_name"`
	RecordCount     int             `json:"record_count"`
	TotalRegular    float64         `json:"total_regular_hours"`
	TotalOvertime   float64         `json:"total_overtime_hours"`
	Records         []StagingRecord `json:"records"`
}

func (s *Store) GroupedStaging(f StagingFilter) ([]EmployeeGroup, error) {
	f.Limit = 1000
	records, _, err := s.SearchStaging(f)
	if err != nil {
		return nil, err
	}

	byEmployee := utils.GroupBy(records, func(r StagingRecord) string {
		return r.EmployeeIDPtrj + "|" + r.EmployeeName
	})

	groups := make([]EmployeeGroup, 0, len(byEmployee))
	for _, recs := range byEmployee {
		g := EmployeeGroup{
			EmployeeIDVenus: recs[0].EmployeeIDVenus,
			EmployeeIDPtrj:  recs[0].EmployeeIDPtrj,
			EmployeeName:    recs[0].EmployeeName,
			RecordCount:     len(recs),
			Records:         recs,
		}
		for _, r := range recs {
			g.TotalRegular += r.RegularHours
			g.TotalOvertime += r.OvertimeHours
		}
		groups = append(groups, g)
	}
	return groups, nil
}

type StagingStats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	EmployeeCount  int64            `json:"employee_count"`
	EarliestDate   string           `json:"earliest_date"`
	LatestDate     string           `json:"latest_date"`
	TransferCount  int64            `json:"transfer_count"`
	OfflinePending int64            `json:"offline_pending"`
}

func (s *Store) Stats() (StagingStats, error) {
	stats := StagingStats{ByStatus: map[string]int64{}}

	if err := s.db.Model(&StagingRecord{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	type statusCount struct {
		Status string
		N      int64
	}
	var counts []statusCount
	err := s.db.Model(&StagingRecord{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return stats, err
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.N
	}

	if err := s.db.Model(&StagingRecord{}).
		Distinct("employee_id_ptrj").Count(&stats.EmployeeCount).Error; err != nil {
		return stats, err
	}

	type dateRange struct {
		Min string
		Max string
	}
	var dr dateRange
	if err := s.db.Model(&StagingRecord{}).
		Select("MIN(date) AS min, MAX(date) AS max").
		Scan(&dr).Error; err != nil {
		return stats, err
	}
	stats.EarliestDate, stats.LatestDate = dr.Min, dr.Max

	if err := s.db.Model(&TransferRecord{}).Count(&stats.TransferCount).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&OfflineQueueEntry{}).
		Where("status = ?", QueuePending).Count(&stats.OfflinePending).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

func (s *Store) UpdateStagingStatus(id, status, notes string) error {
	updates := map[string]interface{}{"status": status}
	if notes != "" {
		updates["notes"] = notes
	}
	result := s.db.Model(&StagingRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no staging record with id %s", id)
	}
	return nil
}

// --- transfer history ---

func (s *Store) IsTransferred(rec *StagingRecord) (bool, error) {
	var n int64
	err := s.db.Model(&TransferRecord{}).
		Where("record_hash = ?", rec.Fingerprint()).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FilterUntransferred drops records whose fingerprint already exists in the
// transfer history. Applying it twice gives the same result as once.
func (s *Store) FilterUntransferred(records []StagingRecord) ([]StagingRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	hashes := utils.Map(records, func(r StagingRecord) string { return r.Fingerprint() })

	var existing []string
	err := s.db.Model(&TransferRecord{}).
		Where("record_hash IN ?", hashes).
		Pluck("record_hash", &existing).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing))
	for _, h := range existing {
		seen[h] = true
	}

	return utils.Filter(records, func(r StagingRecord) bool {
		return !seen[r.Fingerprint()]
	}), nil
}

// RecordTransfer appends the audit row for a transferred record. A second
// call for the same fact is a no-op; the unique hash index backs this up.
func (s *Store) RecordTransfer(rec *StagingRecord, status string) error {
	row := TransferRecord{
		RecordHash:     rec.Fingerprint(),
		EmployeeIDPtrj: rec.EmployeeIDPtrj,
		EmployeeName:   rec.EmployeeName,
		Date:           rec.Date,
		RegularHours:   rec.RegularHours,
		OvertimeHours:  rec.OvertimeHours,
		TotalHours:     rec.TotalHours,
		Status:         status,
		TransferredAt:  time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) TransferHistory(limit int) ([]TransferRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []TransferRecord
	err := s.db.Order("transferred_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// --- offline queue ---

func (s *Store) EnqueueOffline(entry *OfflineQueueEntry) error {
	if entry.Status == "" {
		entry.Status = QueuePending
	}
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = time.Now()
	}
	return s.db.Create(entry).Error
}

func (s *Store) PendingOffline() ([]OfflineQueueEntry, error) {
	var entries []OfflineQueueEntry
	err := s.db.Where("status = ?", QueuePending).
		Order("queued_at ASC").Find(&entries).Error
	return entries, err
}

func (s *Store) MarkOfflineProcessed(id uint) error {
	now := time.Now()
	return s.db.Model(&OfflineQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       QueueProcessed,
			"processed_at": &now,
		}).Error
}

func (s *Store) BumpOfflineRetry(id uint) error {
	return s.db.Model(&OfflineQueueEntry{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

// --- validation logs ---

func (s *Store) LogValidation(v *ValidationLog) error {
	return s.db.Create(v).Error
}

func (s *Store) ValidationLogs(limit int) ([]ValidationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []ValidationLog
	err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
