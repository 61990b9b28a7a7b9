package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ptrj.com/venus/core"
	"ptrj.com/venus/utils"
)

// Seeds the staging store with a few days of attendance for two employees,
// enough to exercise the API and a transfer job by hand.
func main() {
	dbPath := flag.String("db", "staging.db", "path to the staging database")
	days := flag.Int("days", 3, "number of days to seed per employee")
	flag.Parse()

	logger := zap.NewNop()
	store, err := core.OpenStore(*dbPath, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	employees := []struct {
		venusID, ptrjID, name string
	}{
		{"PTRJ.241000001", "POM00214", "SUPARDI"},
		{"PTRJ.241000002", "POM00111", "BUDI SANTOSO"},
	}

	chargeJob := "(OC7190) LABORATORY ANALYSIS / (STN-LAB) STATION LAB / (LAB00000) LABOUR COST / L (LABOUR)"
	job := core.ParseChargeJob(chargeJob)

	var records []core.StagingRecord
	start := utils.JakartaNow().AddDate(0, 0, -*days)
	for _, emp := range employees {
		for d := 0; d < *days; d++ {
			day := start.AddDate(0, 0, d)
			records = append(records, core.StagingRecord{
				ID:              uuid.NewString(),
				EmployeeIDVenus: emp.venusID,
				EmployeeIDPtrj:  emp.ptrjID,
				EmployeeName:    emp.name,
				Date:            day.Format("2006-01-02"),
				DayOfWeek:       day.Weekday().String(),
				Shift:           "LABOR(NORMAL)",
				CheckIn:         "07:00",
				CheckOut:        "16:00",
				RegularHours:    7,
				OvertimeHours:   1,
				TotalHours:      8,
				TaskCode:        job.Task,
				StationCode:     job.Station,
				MachineCode:     job.Machine,
				ExpenseCode:     job.Expense,
				RawChargeJob:    chargeJob,
				Status:          core.StatusStaged,
			})
		}
	}

	if err := store.InsertStaging(records); err != nil {
		log.Fatalf("insert records: %v", err)
	}

	fmt.Printf("seeded %d records into %s\n", len(records), *dbPath)
}
