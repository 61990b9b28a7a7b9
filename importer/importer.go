// Package importer loads staging records from spreadsheet exports of the
// upstream attendance system.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"ptrj.com/venus/core"
	"ptrj.com/venus/utils"
)

// column order of the export; the first row is a header.
var columns = []string{
	"employee_id_venus", "employee_id_ptrj", "employee_name",
	"date", "day_of_week", "shift", "check_in", "check_out",
	"regular_hours", "overtime_hours", "total_hours",
	"task_code", "station_code", "machine_code", "expense_code",
	"raw_charge_job", "source_record_id",
}

// FromXLSX reads the first sheet of an attendance export.
func FromXLSX(r io.Reader) ([]core.StagingRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return fromRows(rows)
}

// FromCSV reads the same layout from a CSV export. Exports are often hand
// edited, so short rows and padded cells are accepted.
func FromCSV(r io.Reader) ([]core.StagingRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]core.StagingRecord, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	var records []core.StagingRecord
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string) (core.StagingRecord, error) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rec := core.StagingRecord{
		ID:              uuid.NewString(),
		EmployeeIDVenus: get(0),
		EmployeeIDPtrj:  get(1),
		EmployeeName:    get(2),
		Date:            get(3),
		DayOfWeek:       get(4),
		Shift:           get(5),
		CheckIn:         get(6),
		CheckOut:        get(7),
		TaskCode:        get(11),
		StationCode:     get(12),
		MachineCode:     get(13),
		ExpenseCode:     get(14),
		RawChargeJob:    get(15),
		SourceRecordID:  get(16),
		Status:          core.StatusStaged,
	}

	if rec.EmployeeIDPtrj == "" {
		return rec, fmt.Errorf("missing employee_id_ptrj")
	}
	if _, err := utils.ParseISOTime(rec.Date); err != nil {
		return rec, fmt.Errorf("bad date %q", rec.Date)
	}

	var err error
	if rec.RegularHours, err = parseHours(get(8)); err != nil {
		return rec, fmt.Errorf("bad regular_hours: %w", err)
	}
	if rec.OvertimeHours, err = parseHours(get(9)); err != nil {
		return rec, fmt.Errorf("bad overtime_hours: %w", err)
	}
	if rec.TotalHours, err = parseHours(get(10)); err != nil {
		return rec, fmt.Errorf("bad total_hours: %w", err)
	}
	if rec.TotalHours == 0 {
		rec.TotalHours = rec.RegularHours + rec.OvertimeHours
	} else if diff := rec.TotalHours - (rec.RegularHours + rec.OvertimeHours); diff > 0.1 || diff < -0.1 {
		return rec, fmt.Errorf("total_hours %.2f does not match regular %.2f + overtime %.2f",
			rec.TotalHours, rec.RegularHours, rec.OvertimeHours)
	}

	if rec.RawChargeJob != "" && rec.TaskCode == "" {
		job := core.ParseChargeJob(rec.RawChargeJob)
		rec.TaskCode = job.Task
		rec.StationCode = job.Station
		rec.MachineCode = job.Machine
		rec.ExpenseCode = job.Expense
	}

	return rec, nil
}

func parseHours(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
