package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/fiv-automation/internal/api/responses"
	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/converter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	cfg := config.Default()
	return NewRouter(cfg, converter.New(cfg, nil), nil)
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func settlementWorkbook(t *testing.T, sheets ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetSheetRow(name, "A1", &[]interface{}{"Mã đặt phòng", "Ngày trả phòng", "Doanh thu thực", "Số tiền bị trừ"}))
		require.NoError(t, f.SetSheetRow(name, "A2", &[]interface{}{"B1", "02/08/2025", 1000000, 150000}))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responses.APIResponse {
	t.Helper()
	var resp responses.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UP"`)
}

func TestListSheets(t *testing.T) {
	req := multipartRequest(t, "/api/v1/settlement/sheets",
		[]upload{{"file", "LCB.xlsx", settlementWorkbook(t, "LCB")}}, nil)
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, map[string]interface{}{"sheets": []interface{}{"LCB"}}, resp.Data)
}

func TestFilterSettlement(t *testing.T) {
	req := multipartRequest(t, "/api/v1/settlement/filter",
		[]upload{{"file", "LCB.xlsx", settlementWorkbook(t, "LCB")}},
		map[string]string{"start": "2025-08-01", "end": "2025-08-07"})
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=Agoda_processed_20250801_20250807.xlsx", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Records"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Agoda"}, f.GetSheetList())
}

func TestFilterSettlementAmbiguous(t *testing.T) {
	req := multipartRequest(t, "/api/v1/settlement/filter",
		[]upload{{"file", "LCB.xlsx", settlementWorkbook(t, "A", "B")}},
		map[string]string{"start": "2025-08-01", "end": "2025-08-07"})
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]interface{}{"sheets": []interface{}{"A", "B"}}, resp.Data)
}

func TestFilterSettlementBadRequests(t *testing.T) {
	today := time.Now().Format("2006-01-02")

	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		code   int
	}{
		{
			name:   "missing file",
			fields: map[string]string{"start": today, "end": today},
			code:   http.StatusBadRequest,
		},
		{
			name:   "bad start",
			files:  []upload{{"file", "LCB.xlsx", settlementWorkbook(t, "LCB")}},
			fields: map[string]string{"start": "01/08/2025", "end": today},
			code:   http.StatusBadRequest,
		},
		{
			name:   "start after end",
			files:  []upload{{"file", "LCB.xlsx", settlementWorkbook(t, "LCB")}},
			fields: map[string]string{"start": "2025-08-07", "end": "2025-08-01"},
			code:   http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown sheet",
			files:  []upload{{"file", "LCB.xlsx", settlementWorkbook(t, "LCB")}},
			fields: map[string]string{"start": "2025-08-01", "end": "2025-08-07", "sheet": "Other"},
			code:   http.StatusNotFound,
		},
		{
			name:   "unsupported format",
			files:  []upload{{"file", "LCB.pdf", []byte("%PDF")}},
			fields: map[string]string{"start": "2025-08-01", "end": "2025-08-07"},
			code:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, "/api/v1/settlement/filter", tt.files, tt.fields)
			rec := httptest.NewRecorder()
			newRouter().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadMB = 1
	router := NewRouter(cfg, converter.New(cfg, nil), nil)

	req := multipartRequest(t, "/api/v1/settlement/sheets",
		[]upload{{"file", "LCB.xlsx", bytes.Repeat([]byte("x"), 2<<20)}}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "error", decode(t, rec).Status)
}

func TestGenerateFIVMissingReference(t *testing.T) {
	req := multipartRequest(t, "/api/v1/fiv",
		[]upload{{"invoiceFile", "EAS.xlsx", settlementWorkbook(t, "Sheet1")}}, nil)
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateFIVHeaderNotFound(t *testing.T) {
	reference := []byte("Name,MST,Customer account\nA,1,C1\n")
	req := multipartRequest(t, "/api/v1/fiv", []upload{
		{"invoiceFile", "EAS.xlsx", settlementWorkbook(t, "Sheet1")},
		{"referenceFile", "KH.csv", reference},
	}, nil)
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
