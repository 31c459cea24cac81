package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/lophoc/apps/api/echo"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/user"
	testutil "github.com/trezcool/lophoc/tests"
)

func getToken(t *testing.T, conf *core.Config, usr user.User, origIat ...int64) string {
	auth := NewAuth(conf)
	token, err := auth.GenerateToken(auth.UserClaims(usr, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func Test_userApi_login(t *testing.T) {
	app, srv := setup(t)
	testutil.CreateUser(t, app.UserRepo, "Cô Lan", "colan", "Ph4nB0i!x", true)
	testutil.CreateUser(t, app.UserRepo, "Thầy Nam", "thaynam", "Ph4nB0i!x", false)

	failed := errDetail("authentication failed")
	runHTTPTests(t, srv, []httpTest{
		{
			name: "missing password", method: http.MethodPost, path: "/api/users/login", body: []byte(`{"username": "colan"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "nobody", "password": "Ph4nB0i!x"}`), wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "colan", "password": "wrong"}`), wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "thaynam", "password": "Ph4nB0i!x"}`), wantCode: http.StatusForbidden,
			wantData: errDetail("account deactivated"),
		},
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/users/login", []byte(`{"username": " COLAN ", "password": "Ph4nB0i!x"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decode(t, rec, &resp)
		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(app.Conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "colan", claims.Subject)
		assert.Equal(t, "colan", claims.Username)

		usr, err := app.UserSvc.GetByUsername(req.Context(), "colan")
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app, srv := setup(t)
	usr := testutil.CreateUser(t, app.UserRepo, "Cô Lan", "colan", "Ph4nB0i!x", true)
	inactive := testutil.CreateUser(t, app.UserRepo, "Thầy Nam", "thaynam", "Ph4nB0i!x", false)
	expired := time.Now().Add(-app.Conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()

	runHTTPTests(t, srv, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/users/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: errDetail("missing or malformed jwt"),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/users/token-refresh",
			token: getToken(t, app.Conf, inactive), wantCode: http.StatusForbidden,
		},
		{
			name: "refresh expired", method: http.MethodPost, path: "/api/users/token-refresh",
			token: getToken(t, app.Conf, usr, expired), wantCode: http.StatusForbidden, wantData: errDetail("refresh has expired"),
		},
		{name: "ok", method: http.MethodPost, path: "/api/users/token-refresh", token: getToken(t, app.Conf, usr)},
	})
}

func Test_authEnabled(t *testing.T) {
	app, srv := setup(t, withAuth)
	usr := testutil.CreateUser(t, app.UserRepo, "Cô Lan", "colan", "Ph4nB0i!x", true)
	inactive := testutil.CreateUser(t, app.UserRepo, "Thầy Nam", "thaynam", "Ph4nB0i!x", false)
	c := app.CreateClassroom(t, "5A")

	runHTTPTests(t, srv, []httpTest{
		{name: "health is public", path: "/api/health"},
		{name: "token required", path: "/api/students/" + c.ID, wantCode: http.StatusUnauthorized},
		{name: "bad token", path: "/api/students/" + c.ID, token: "not.a.jwt", wantCode: http.StatusUnauthorized},
		{name: "deactivated", path: "/api/students/" + c.ID, token: getToken(t, app.Conf, inactive), wantCode: http.StatusForbidden},
		{name: "ok", path: "/api/students/" + c.ID, token: getToken(t, app.Conf, usr), wantData: []byte(`[]`)},
	})
}

func Test_health(t *testing.T) {
	app, srv := setup(t)
	runHTTPTests(t, srv, []httpTest{
		{
			name: "health", path: "/api/health",
			wantData: marshallObj(t, HealthResponse{Status: "ok", App: app.Conf.AppName, Build: app.Conf.Build}),
		},
		{name: "unknown route", path: "/api/nope", wantCode: http.StatusNotFound, wantData: errDetail("Not Found")},
	})
}
