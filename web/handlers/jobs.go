package handlers

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ptrj.com/venus/service"
	"ptrj.com/venus/web/common"
)

// RegisterJobs mounts the transfer job endpoints on the group.
func RegisterJobs(rg *gin.RouterGroup, svc *service.Service) {
	rg.POST("/jobs", startJobHandler(svc))
	rg.GET("/jobs", listJobsHandler(svc))
	rg.GET("/jobs/:id", jobStatusHandler(svc))
	rg.DELETE("/jobs/:id", cancelJobHandler(svc))
	rg.GET("/engine/status", engineStatusHandler(svc))
}

func startJobHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			RecordIDs []string `json:"record_ids" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		jobID, err := svc.StartJob(c.Request.Context(), body.RecordIDs)
		if err != nil {
			c.JSON(http.StatusConflict, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusAccepted, common.NewSuccessResponse(gin.H{"job_id": jobID}))
	}
}

func listJobsHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs := svc.Jobs()
		sort.Slice(jobs, func(i, j int) bool {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		})
		c.JSON(http.StatusOK, common.NewSuccessResponse(jobs))
	}
}

func jobStatusHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := svc.JobStatus(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, common.NewErrorResponse("job not found"))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(job))
	}
}

func cancelJobHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Cancel(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, common.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"cancelled": true}))
	}
}

func engineStatusHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready, err := svc.EngineStatus()
		data := gin.H{"ready": ready}
		if err != nil {
			data["error"] = err.Error()
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(data))
	}
}

func newRecordID() string {
	return uuid.NewString()
}

func fileExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
