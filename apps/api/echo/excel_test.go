package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lophoc/services/spreadsheet"
)

func newUploadRequest(t *testing.T, path, field, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func Test_excelApi_import(t *testing.T) {
	app, srv := setup(t)
	c := app.CreateClassroom(t, "5A")

	tests := []struct {
		name     string
		path     string
		field    string
		filename string
		content  string
		wantCode int
		wantBody string
	}{
		{
			name: "no file", path: "/api/excel/import/" + c.ID, wantCode: http.StatusBadRequest,
			wantBody: `{"detail": "file is required", "fields": {"file": "file is required"}}`,
		},
		{
			name: "unsupported format", path: "/api/excel/import/" + c.ID, field: "file", filename: "lop.xls", content: "x",
			wantCode: http.StatusBadRequest, wantBody: `{"detail": "only .xlsx or .csv files are supported"}`,
		},
		{
			name: "unknown classroom", path: "/api/excel/import/nope", field: "file", filename: "lop.csv", content: "Tên\nAn\n",
			wantCode: http.StatusNotFound, wantBody: `{"detail": "classroom not found"}`,
		},
		{
			name: "csv", path: "/api/excel/import/" + c.ID, field: "file", filename: "lop.csv",
			content: "Tên,Điểm\nAn,12\n,3\nBình,x\n", wantCode: http.StatusOK,
			wantBody: `{
				"imported": 2,
				"errors": ["row 3: student name not found"],
				"students": [{"name": "An", "points": 12}, {"name": "Bình", "points": 0}]
			}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, tt.path, tt.field, tt.filename, tt.content)
			srv.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func Test_excelApi_export(t *testing.T) {
	app, srv := setup(t)
	c := app.CreateClassroom(t, "Lớp 5A")
	an := app.CreateStudent(t, c.ID, "An", 1, 0)
	app.ChangePoints(t, an.ID, 60, "Phát biểu")

	req, rec := newRequest(http.MethodGet, "/api/excel/export/"+c.ID)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, spreadsheet.ContentType, rec.Header().Get("Content-Type"))
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="xephang_L_p 5A_`), disposition)
	assert.Contains(t, disposition, "filename*=UTF-8''xephang_L%E1%BB%9Bp%205A_")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Danh sách")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "An", "60", "Bạc", "60", "0"}, rows[1])

	req, rec = newRequest(http.MethodGet, "/api/excel/export/nope")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
