package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// recordKey is the canonical identity of a transferred fact. Fields are
// declared in sorted key order so the JSON encoding is stable.
type recordKey struct {
	AttendanceDate string  `json:"attendance_date"`
	EmployeeIDPtrj string  `json:"employee_id_ptrj"`
	OvertimeHours  float64 `json:"overtime_hours"`
	RegularHours   float64 `json:"regular_hours"`
}

// Fingerprint returns the hex SHA-256 digest of the canonical JSON of the
// four identity fields. Same inputs always give the same digest; any changed
// input gives a different one, so corrected hours count as a new fact.
func Fingerprint(employeeIDPtrj, date string, regular, overtime float64) string {
	b, _ := json.Marshal(recordKey{
		AttendanceDate: date,
		EmployeeIDPtrj: employeeIDPtrj,
		OvertimeHours:  overtime,
		RegularHours:   regular,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (r *StagingRecord) Fingerprint() string {
	return Fingerprint(r.EmployeeIDPtrj, r.Date, r.RegularHours, r.OvertimeHours)
}
