package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ptrj.com/venus/core"
	"ptrj.com/venus/mill"
	"ptrj.com/venus/service"
	"ptrj.com/venus/web"
	"ptrj.com/venus/web/middlewares"
)

var testSecret = []byte("handler-test-secret")

type okProcessor struct{}

func (okProcessor) Init(ctx context.Context) error { return nil }
func (okProcessor) Process(ctx context.Context, rec *core.StagingRecord, trxDate string) error {
	return nil
}
func (okProcessor) Stop() {}

type okValidator struct{}

func (okValidator) Validate(ctx context.Context, rec *core.StagingRecord) mill.Result {
	return mill.Result{Status: mill.StatusSuccess, TrxDate: rec.Date}
}

func (okValidator) TrxDate(date string) (string, error) { return date, nil }

func testRouter(t *testing.T) (*gin.Engine, *core.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := core.OpenStore(filepath.Join(t.TempDir(), "staging.db"), zap.NewNop())
	require.NoError(t, err)

	svc := service.New(store, okValidator{}, okProcessor{}, nil, zap.NewNop())
	return web.NewRouter(store, svc, testSecret), store
}

func authedRequest(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := middlewares.CreateJWT("tester", testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// newMultipart writes a single-file multipart body into buf and returns the
// Content-Type header value.
func newMultipart(t *testing.T, buf *bytes.Buffer, filename string, content []byte) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}

func seedStaging(t *testing.T, store *core.Store, n int) []core.StagingRecord {
	t.Helper()
	records := make([]core.StagingRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, core.StagingRecord{
			ID:             fmt.Sprintf("rec-%03d", i),
			EmployeeIDPtrj: "POM00214",
			EmployeeName:   "SUPARDI",
			Date:           fmt.Sprintf("2025-06-%02d", i+1),
			RegularHours:   7,
			OvertimeHours:  1,
			TotalHours:     8,
			Status:         core.StatusStaged,
		})
	}
	require.NoError(t, store.InsertStaging(records))
	return records
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/staging/data", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchStaging(t *testing.T) {
	r, store := testRouter(t)
	seedStaging(t, store, 3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/staging/data?limit=2", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
		Total   int64             `json:"total"`
		Count   int               `json:"count"`
		Limit   int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Limit)
}

func TestGroupedStaging(t *testing.T) {
	r, store := testRouter(t)
	seedStaging(t, store, 2)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/staging/data-grouped", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []core.EmployeeGroup `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "SUPARDI", resp.Data[0].EmployeeName)
	assert.Equal(t, 2, resp.Data[0].RecordCount)
}

func TestStagingStats(t *testing.T) {
	r, store := testRouter(t)
	seedStaging(t, store, 2)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/staging/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data core.StagingStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Data.Total)
}

func TestPushStaging(t *testing.T) {
	r, store := testRouter(t)

	body := []byte(`{"records":[{
		"employee_id_ptrj": "POM00111",
		"employee_name": "BUDI",
		"date": "2025-06-10",
		"regular_hours": 7,
		"overtime_hours": 0
	}]}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/staging/data", body))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	records, total, err := store.SearchStaging(core.StagingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "2025-06-10", records[0].Date)
	assert.Equal(t, 7.0, records[0].TotalHours)
	assert.Equal(t, core.StatusStaged, records[0].Status)
}

func TestPushStagingRejectsInconsistentTotal(t *testing.T) {
	r, store := testRouter(t)

	body := []byte(`{"records":[{
		"employee_id_ptrj": "POM00111",
		"employee_name": "BUDI",
		"date": "2025-06-10",
		"regular_hours": 7,
		"overtime_hours": 1,
		"total_hours": 9
	}]}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/staging/data", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "total_hours")

	_, total, err := store.SearchStaging(core.StagingFilter{})
	require.NoError(t, err)
	assert.Zero(t, total) // nothing staged
}

func TestPushStagingAcceptsTotalWithinTolerance(t *testing.T) {
	r, store := testRouter(t)

	body := []byte(`{"records":[{
		"employee_id_ptrj": "POM00111",
		"employee_name": "BUDI",
		"date": "2025-06-10",
		"regular_hours": 7,
		"overtime_hours": 1,
		"total_hours": 8.1
	}]}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/staging/data", body))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	records, _, err := store.SearchStaging(core.StagingFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 8.1, records[0].TotalHours, 0.001)
}

func TestPushStagingRejectsMissingFields(t *testing.T) {
	r, _ := testRouter(t)

	body := []byte(`{"records":[{"employee_name": "BUDI"}]}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/staging/data", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRejectsUnknownType(t *testing.T) {
	r, _ := testRouter(t)

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "records.pdf", []byte("%PDF"))

	req := httptest.NewRequest(http.MethodPost, "/api/staging/import", &buf)
	req.Header.Set("Content-Type", mw)
	token, err := middlewares.CreateJWT("tester", testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestImportCSV(t *testing.T) {
	r, store := testRouter(t)

	csv := "employee_id_venus,employee_id_ptrj,employee_name,date,day_of_week,shift,check_in,check_out,regular_hours,overtime_hours,total_hours,task_code,station_code,machine_code,expense_code,raw_charge_job,source_record_id\n" +
		"V1,POM00214,SUPARDI,2025-06-01,Sunday,NORMAL,07:00,15:00,7,1,8,T1,S1,M1,E1,T1 / S1 / M1 / E1,src-1\n"

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "attendance.csv", []byte(csv))

	req := httptest.NewRequest(http.MethodPost, "/api/staging/import", &buf)
	req.Header.Set("Content-Type", mw)
	token, err := middlewares.CreateJWT("tester", testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	records, total, err := store.SearchStaging(core.StagingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "SUPARDI", records[0].EmployeeName)
	assert.Equal(t, "src-1", records[0].SourceRecordID)
}

func TestJobLifecycle(t *testing.T) {
	r, store := testRouter(t)
	records := seedStaging(t, store, 1)

	body, _ := json.Marshal(gin.H{"record_ids": []string{records[0].ID}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/jobs", body))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started struct {
		Data struct {
			JobID string `json:"job_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.Data.JobID)

	deadline := time.After(5 * time.Second)
	for {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/jobs/"+started.Data.JobID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var status struct {
			Data service.Job `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		if status.Data.State.Terminal() {
			assert.Equal(t, service.JobCompleted, status.Data.State)
			break
		}

		select {
		case <-deadline:
			t.Fatal("job did not finish in time")
		case <-time.After(20 * time.Millisecond):
		}
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data []service.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
}

func TestJobNotFound(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodDelete, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartJobRejectsDuplicates(t *testing.T) {
	r, store := testRouter(t)
	records := seedStaging(t, store, 1)
	require.NoError(t, store.RecordTransfer(&records[0], "transferred"))

	body, _ := json.Marshal(gin.H{"record_ids": []string{records[0].ID}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/jobs", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already transferred")
}

func TestEngineStatus(t *testing.T) {
	r, _ := testRouter(t)

	var ready bool
	deadline := time.After(2 * time.Second)
	for !ready {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/engine/status", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Ready bool `json:"ready"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		ready = resp.Data.Ready

		select {
		case <-deadline:
			t.Fatal("engine never reported ready")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
