package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ptrj.com/venus/core"
	"ptrj.com/venus/importer"
	"ptrj.com/venus/web/common"
)

// RegisterStaging mounts the staging data endpoints on the group.
func RegisterStaging(rg *gin.RouterGroup, store *core.Store) {
	rg.GET("/staging/data", searchStagingHandler(store))
	rg.GET("/staging/data-grouped", groupedStagingHandler(store))
	rg.GET("/staging/stats", stagingStatsHandler(store))
	rg.POST("/staging/data", pushStagingHandler(store))
	rg.POST("/staging/import", importStagingHandler(store))
}

func stagingFilter(c *gin.Context) core.StagingFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return core.StagingFilter{
		EmployeeName: c.Query("employee_name"),
		DateFrom:     c.Query("date_from"),
		DateTo:       c.Query("date_to"),
		Status:       c.Query("status"),
		Limit:        limit,
		Offset:       offset,
	}
}

func searchStagingHandler(store *core.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := stagingFilter(c)
		records, total, err := store.SearchStaging(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
		limit := f.Limit
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		c.JSON(http.StatusOK, common.NewListResponse(records, total, len(records), f.Offset, limit))
	}
}

func groupedStagingHandler(store *core.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := store.GroupedStaging(stagingFilter(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(groups))
	}
}

func stagingStatsHandler(store *core.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.Stats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
	}
}

// stagingUpload is one record pushed by the upstream attendance system.
type stagingUpload struct {
	ID              string          `json:"id"`
	EmployeeIDVenus string          `json:"employee_id_venus"`
	EmployeeIDPtrj  string          `json:"employee_id_ptrj" binding:"required"`
	EmployeeName    string          `json:"employee_name" binding:"required"`
	Date            common.DateOnly `json:"date" binding:"required"`
	DayOfWeek       string          `json:"day_of_week"`
	Shift           string          `json:"shift"`
	CheckIn         string          `json:"check_in"`
	CheckOut        string          `json:"check_out"`
	RegularHours    float64         `json:"regular_hours" binding:"gte=0"`
	OvertimeHours   float64         `json:"overtime_hours" binding:"gte=0"`
	TotalHours      float64         `json:"total_hours"`
	TaskCode        string          `json:"task_code"`
	StationCode     string          `json:"station_code"`
	MachineCode     string          `json:"machine_code"`
	ExpenseCode     string          `json:"expense_code"`
	RawChargeJob    string          `json:"raw_charge_job"`
	SourceRecordID  string          `json:"source_record_id"`
}

func pushStagingHandler(store *core.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Records []stagingUpload `json:"records" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		records := make([]core.StagingRecord, 0, len(body.Records))
		for _, u := range body.Records {
			id := u.ID
			if id == "" {
				id = newRecordID()
			}
			total := u.TotalHours
			if total == 0 {
				total = u.RegularHours + u.OvertimeHours
			} else if diff := total - (u.RegularHours + u.OvertimeHours); diff > 0.1 || diff < -0.1 {
				c.JSON(http.StatusBadRequest, common.NewErrorResponse(fmt.Sprintf(
					"record %s %s: total_hours %.2f does not match regular %.2f + overtime %.2f",
					u.EmployeeIDPtrj, u.Date.String(), total, u.RegularHours, u.OvertimeHours)))
				return
			}
			records = append(records, core.StagingRecord{
				ID:              id,
				EmployeeIDVenus: u.EmployeeIDVenus,
				EmployeeIDPtrj:  u.EmployeeIDPtrj,
				EmployeeName:    u.EmployeeName,
				Date:            u.Date.String(),
				DayOfWeek:       u.DayOfWeek,
				Shift:           u.Shift,
				CheckIn:         u.CheckIn,
				CheckOut:        u.CheckOut,
				RegularHours:    u.RegularHours,
				OvertimeHours:   u.OvertimeHours,
				TotalHours:      total,
				TaskCode:        u.TaskCode,
				StationCode:     u.StationCode,
				MachineCode:     u.MachineCode,
				ExpenseCode:     u.ExpenseCode,
				RawChargeJob:    u.RawChargeJob,
				SourceRecordID:  u.SourceRecordID,
				Status:          core.StatusStaged,
			})
		}

		if err := store.InsertStaging(records); err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"inserted": len(records)}))
	}
}

// importStagingHandler takes a spreadsheet or CSV upload of the attendance
// export and stages its rows.
func importStagingHandler(store *core.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("missing file upload"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
			return
		}
		defer file.Close()

		var records []core.StagingRecord
		switch ext := fileExt(fileHeader.Filename); ext {
		case ".xlsx":
			records, err = importer.FromXLSX(file)
		case ".csv":
			records, err = importer.FromCSV(file)
		default:
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("unsupported file type "+ext))
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
			return
		}

		if err := store.InsertStaging(records); err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"inserted": len(records)}))
	}
}
