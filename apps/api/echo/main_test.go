package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/lophoc/apps/api/echo"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/services/spreadsheet"
	testutil "github.com/trezcool/lophoc/tests"
)

func setup(t *testing.T, confs ...func(conf *core.Config)) (*testutil.App, Server) {
	t.Helper()
	app := testutil.NewApp()
	for _, c := range confs {
		c(app.Conf)
	}

	srv := NewServer(&Options{
		Conf:           app.Conf,
		Logger:         app.Logger,
		Validate:       app.Validate,
		Translator:     core.NewTranslator(),
		DisableReqLogs: true,
		ClassroomSvc:   app.ClassroomSvc,
		StudentSvc:     app.StudentSvc,
		RewardSvc:      app.RewardSvc,
		UserSvc:        app.UserSvc,
		SpreadsheetSvc: spreadsheet.NewService(app.ClassroomSvc, app.StudentSvc, app.Validate),
	})
	return app, srv
}

func withAuth(conf *core.Config) {
	conf.Server.AuthEnabled = true
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func errDetail(detail string) []byte {
	data, _ := json.Marshal(ErrorResponse{Detail: detail})
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("%s %s: code = %d, want %d; body: %s", tt.method, tt.path, rec.Code, wantCode, rec.Body.String())
		return
	}
	if tt.wantData != nil {
		equal, err := jsonBytesEqual(tt.wantData, rec.Body.Bytes())
		if err != nil {
			t.Fatalf("jsonBytesEqual() failed: %v", err)
		}
		if !equal {
			t.Errorf("%s %s: body = %s, want %s", tt.method, tt.path, rec.Body.String(), tt.wantData)
		}
	}
}

func runHTTPTests(t *testing.T, srv Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			tt.method = method
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v)) {
		t.FailNow()
	}
}
