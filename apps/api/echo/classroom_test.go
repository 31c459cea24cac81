package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/classroom"
)

func Test_classroomApi(t *testing.T) {
	app, srv := setup(t)

	c5a := app.CreateClassroom(t, "5A")
	app.CreateStudent(t, c5a.ID, "An", 1, 0)
	app.CreateStudent(t, c5a.ID, "Bình", 2, 0)
	c5a.StudentCount = 2

	runHTTPTests(t, srv, []httpTest{
		{name: "retrieve", path: "/api/classrooms/" + c5a.ID, wantData: marshallObj(t, c5a)},
		{name: "retrieve (unknown)", path: "/api/classrooms/nope", wantCode: http.StatusNotFound, wantData: errDetail("classroom not found")},
		{
			name: "create (blank name)", method: http.MethodPost, path: "/api/classrooms", body: []byte(`{"name": "   "}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "delete (unknown)", method: http.MethodDelete, path: "/api/classrooms/nope", wantCode: http.StatusNotFound},
	})

	t.Run("create & list", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/classrooms", []byte(`{"name": " 5B "}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created classroom.Classroom
		decode(t, rec, &created)
		assert.Equal(t, "5B", created.Name)
		assert.NotEmpty(t, created.ID)

		req, rec = newRequest(http.MethodGet, "/api/classrooms")
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []classroom.Classroom
		decode(t, rec, &list)
		counts := make(map[string]int, len(list))
		for _, c := range list {
			counts[c.Name] = c.StudentCount
		}
		assert.Equal(t, map[string]int{"5A": 2, "5B": 0}, counts)
	})

	t.Run("delete cascades", func(t *testing.T) {
		req, rec := newRequest(http.MethodDelete, "/api/classrooms/"+c5a.ID)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message": "Classroom deleted"}`, rec.Body.String())

		req, rec = newRequest(http.MethodGet, "/api/students/"+c5a.ID)
		srv.ServeHTTP(rec, req)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}
