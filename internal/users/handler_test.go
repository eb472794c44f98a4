package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-hq/castellan/internal/audit"
	"github.com/castellan-hq/castellan/internal/authz"
	"github.com/castellan-hq/castellan/internal/shared"
)

func newTestServer(t *testing.T, actor *authz.Actor) (*httptest.Server, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, &stubRegistry{store: store}, audit.NewRecorder(nil), nil)
	handler := NewHandler(nil, svc)

	r := chi.NewRouter()
	if actor != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(authz.ContextWithActor(req.Context(), *actor)))
			})
		})
	}
	r.Route("/users", handler.MountRoutes)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func createViaStore(t *testing.T, store *memStore, email string, roleIDs ...int64) User {
	t.Helper()
	hash, err := shared.HashPassword("supersecret1")
	require.NoError(t, err)
	user, err := store.Create(context.Background(), CreateParams{
		FirstName:    "Grace",
		LastName:     "Hopper",
		Phone:        "+15550100",
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	for _, roleID := range roleIDs {
		require.NoError(t, store.AttachRole(context.Background(), user.ID, roleID))
	}
	refreshed, err := store.Get(context.Background(), user.ID)
	require.NoError(t, err)
	return refreshed
}

func TestHandlerCreateUser(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)

	resp := doJSON(t, http.MethodPost, server.URL+"/users", `{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"phone":      "+15550100",
		"email":      "grace@example.com",
		"password":   "supersecret1",
		"roles":      ["admin"]
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body userResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "grace@example.com", body.Email)
	assert.Equal(t, []string{"admin"}, body.Roles)
	assert.Len(t, store.users, 1)
}

func TestHandlerCreateValidation(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)

	resp := doJSON(t, http.MethodPost, server.URL+"/users", `{
		"first_name": "Grace",
		"email":      "not-an-email",
		"password":   "short"
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var problem struct {
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, resp, &problem)
	assert.Contains(t, problem.Fields, "last_name", "errors keyed by wire field name")
	assert.Contains(t, problem.Fields, "phone")
	assert.Contains(t, problem.Fields, "email")
	assert.Contains(t, problem.Fields, "password")
	assert.Empty(t, store.users)
}

func TestHandlerCreateForbidden(t *testing.T) {
	viewer := authz.NewActor(uuid.New(), []string{shared.PermUsersView})
	server, store := newTestServer(t, &viewer)

	resp := doJSON(t, http.MethodPost, server.URL+"/users", `{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"phone":      "+15550100",
		"email":      "grace@example.com",
		"password":   "supersecret1"
	}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, store.users)
}

func TestHandlerRequiresActor(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := doJSON(t, http.MethodGet, server.URL+"/users", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerUpdateOmittedRolesPreserved(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com", 2)

	resp := doJSON(t, http.MethodPut, server.URL+"/users/"+user.ID.String(), `{"phone": "+15550200"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body userResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "+15550200", body.Phone)
	assert.Equal(t, []string{"user"}, body.Roles, "omitting the roles key keeps the role set")
}

func TestHandlerUpdateEmptyRolesClears(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com", 2)

	resp := doJSON(t, http.MethodPut, server.URL+"/users/"+user.ID.String(), `{"roles": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body userResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{}, body.Roles, "an explicit empty list removes every role")
}

func TestHandlerGetDetail(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com", 1)

	resp := doJSON(t, http.MethodGet, server.URL+"/users/"+user.ID.String(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		userResponse
		Permissions []string `json:"permissions"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, user.ID.String(), body.ID)
	assert.ElementsMatch(t, shared.UserManagementScopes(), body.Permissions)
}

func TestHandlerGetUnknownID(t *testing.T) {
	actor := adminActor()
	server, _ := newTestServer(t, &actor)

	resp := doJSON(t, http.MethodGet, server.URL+"/users/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/users/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerDelete(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com")

	resp := doJSON(t, http.MethodDelete, server.URL+"/users/"+user.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.users)
}

func TestHandlerDeleteRejectedByStore(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com")
	store.deleteOK = false

	resp := doJSON(t, http.MethodDelete, server.URL+"/users/"+user.ID.String(), "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, store.users, user.ID)
}

func TestHandlerAssignRoleByName(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/users/"+user.ID.String()+"/roles/manager", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body userResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"manager"}, body.Roles)
}

func TestHandlerRemoveRoleByID(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com", 2, 3)

	resp := doJSON(t, http.MethodDelete, server.URL+"/users/"+user.ID.String()+"/roles/3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body userResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"user"}, body.Roles)
}

func TestHandlerAssignUnknownRole(t *testing.T) {
	actor := adminActor()
	server, store := newTestServer(t, &actor)
	user := createViaStore(t, store, "grace@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/users/"+user.ID.String()+"/roles/ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
