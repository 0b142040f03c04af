package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// The suite runs every request through the full Handler: middleware
// chain, router, handlers, and the in-memory store (no database env
// vars are set, so the development fallback is selected). The pooled
// store instance survives across requests, which is exactly what the
// tests need.

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(Handler))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

var userSeq int

// registerUser creates a fresh user and returns its access token.
func registerUser(t *testing.T, ts *httptest.Server) (string, models.User) {
	t.Helper()
	userSeq++
	email := fmt.Sprintf("user%d-%d@cidery.test", userSeq, time.Now().UnixNano())

	status, env := do(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "super-secret-1",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, status)

	var resp models.UserLoginResponse
	decodeData(t, env, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp.User
}

func createOrg(t *testing.T, ts *httptest.Server, token, name string) models.Organization {
	t.Helper()
	status, env := do(t, ts, http.MethodPost, "/api/orgs", token, map[string]string{
		"name":      name,
		"team_size": "small",
	})
	require.Equal(t, http.StatusCreated, status)

	var org models.Organization
	decodeData(t, env, &org)
	require.NotEmpty(t, org.ID)
	return org
}

func createBatch(t *testing.T, ts *httptest.Server, token, orgID string) models.Batch {
	t.Helper()
	status, env := do(t, ts, http.MethodPost, "/api/batches", token, map[string]interface{}{
		"organization_id": orgID,
		"name":            "Harvest Run",
		"variety":         "Dabinett",
		"volume":          12.5,
	})
	require.Equal(t, http.StatusCreated, status)

	var batch models.Batch
	decodeData(t, env, &batch)
	require.Equal(t, models.StagePressing, batch.CurrentStage)
	return batch
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	status, env := do(t, ts, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestRegisterLoginMeFlow(t *testing.T) {
	ts := newTestServer(t)
	token, user := registerUser(t, ts)

	// me
	status, env := do(t, ts, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me models.User
	decodeData(t, env, &me)
	assert.Equal(t, user.Email, me.Email)

	// login
	status, env = do(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusOK, status)
	var login models.UserLoginResponse
	decodeData(t, env, &login)
	assert.NotEmpty(t, login.RefreshToken)

	// refresh
	status, env = do(t, ts, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, status)

	// wrong password
	status, _ = do(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// duplicate registration
	status, _ = do(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    user.Email,
		"password": "super-secret-1",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	ts := newTestServer(t)

	status, _ := do(t, ts, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, ts, http.MethodGet, "/api/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUpdatePassword(t *testing.T) {
	ts := newTestServer(t)
	token, user := registerUser(t, ts)

	status, _ := do(t, ts, http.MethodPut, "/api/me/password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new-secret",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, ts, http.MethodPut, "/api/me/password", token, map[string]string{
		"current_password": "super-secret-1",
		"new_password":     "brand-new-secret",
	})
	require.Equal(t, http.StatusOK, status)

	// old password no longer works
	status, _ = do(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "super-secret-1",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "brand-new-secret",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestOrganizationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts)
	strangerToken, _ := registerUser(t, ts)

	org := createOrg(t, ts, ownerToken, "Orchard Hill")

	// owner sees it in the list
	status, env := do(t, ts, http.MethodGet, "/api/orgs", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var orgs []models.Organization
	decodeData(t, env, &orgs)
	require.Len(t, orgs, 1)
	assert.Equal(t, org.ID, orgs[0].ID)

	// onboarding wrote the owner membership
	status, env = do(t, ts, http.MethodGet, "/api/orgs/"+org.ID+"/members", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var members []models.OrganizationMembership
	decodeData(t, env, &members)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleOwner, members[0].Role)

	// stranger gets 404, indistinguishable from a missing org
	status, _ = do(t, ts, http.MethodGet, "/api/orgs/"+org.ID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, ts, http.MethodGet, "/api/orgs/does-not-exist", strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// owner can update
	status, env = do(t, ts, http.MethodPut, "/api/orgs/"+org.ID, ownerToken, map[string]string{
		"name": "Orchard Hill Cider Co",
	})
	require.Equal(t, http.StatusOK, status)
	var updated models.Organization
	decodeData(t, env, &updated)
	assert.Equal(t, "Orchard Hill Cider Co", updated.Name)

	// owner can delete
	status, _ = do(t, ts, http.MethodDelete, "/api/orgs/"+org.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, ts, http.MethodGet, "/api/orgs/"+org.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestInvitationFlow(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts)
	memberToken, member := registerUser(t, ts)

	org := createOrg(t, ts, ownerToken, "Shared Cidery")

	// non-owner cannot invite
	status, _ := do(t, ts, http.MethodPost, "/api/orgs/invite", memberToken, map[string]string{
		"organization_id": org.ID,
		"email":           member.Email,
	})
	assert.Equal(t, http.StatusForbidden, status)

	// owner invites
	status, env := do(t, ts, http.MethodPost, "/api/orgs/invite", ownerToken, map[string]string{
		"organization_id": org.ID,
		"email":           member.Email,
	})
	require.Equal(t, http.StatusCreated, status)
	var inv models.OrganizationInvitation
	decodeData(t, env, &inv)
	require.NotEmpty(t, inv.Token)

	// invitee sees it
	status, env = do(t, ts, http.MethodGet, "/api/invitations/my", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	var myInvs []models.OrganizationInvitation
	decodeData(t, env, &myInvs)
	require.Len(t, myInvs, 1)

	// accept creates a member-role membership
	status, env = do(t, ts, http.MethodPost, "/api/invitations/accept", memberToken, map[string]string{
		"token": inv.Token,
	})
	require.Equal(t, http.StatusOK, status)
	var membership models.OrganizationMembership
	decodeData(t, env, &membership)
	assert.Equal(t, models.RoleMember, membership.Role)

	// member can now read the org but not update or delete it
	status, _ = do(t, ts, http.MethodGet, "/api/orgs/"+org.ID, memberToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, ts, http.MethodPut, "/api/orgs/"+org.ID, memberToken, map[string]string{"name": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, ts, http.MethodDelete, "/api/orgs/"+org.ID, memberToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// batch work is open to the member role: update and stage advance
	batch := createBatch(t, ts, ownerToken, org.ID)
	status, env = do(t, ts, http.MethodPut, "/api/batches/"+batch.ID, memberToken, map[string]string{
		"name": "Member Run",
	})
	require.Equal(t, http.StatusOK, status)
	var updated models.Batch
	decodeData(t, env, &updated)
	assert.Equal(t, "Member Run", updated.Name)

	status, env = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/advance", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &updated)
	assert.Equal(t, models.StageFermenting, updated.CurrentStage)
}

func TestBatchValidation(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Validation Cidery")

	// negative volume
	status, _ := do(t, ts, http.MethodPost, "/api/batches", token, map[string]interface{}{
		"organization_id": org.ID,
		"name":            "Bad Batch",
		"volume":          -5,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// zero volume
	status, _ = do(t, ts, http.MethodPost, "/api/batches", token, map[string]interface{}{
		"organization_id": org.ID,
		"name":            "Bad Batch",
		"volume":          0,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// missing name
	status, _ = do(t, ts, http.MethodPost, "/api/batches", token, map[string]interface{}{
		"organization_id": org.ID,
		"volume":          10,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// valid
	batch := createBatch(t, ts, token, org.ID)
	assert.Equal(t, "12.5", batch.Volume.String())
}

func TestBatchStageAdvance(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Stage Cidery")
	batch := createBatch(t, ts, token, org.ID)

	expected := []models.Stage{models.StageFermenting, models.StageAging, models.StageBottled}
	for _, want := range expected {
		status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/advance", token, nil)
		require.Equal(t, http.StatusOK, status)
		var got models.Batch
		decodeData(t, env, &got)
		assert.Equal(t, want, got.CurrentStage)
	}

	// advancing a bottled batch is a no-op, not an error
	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/advance", token, nil)
	require.Equal(t, http.StatusOK, status)
	var result struct {
		Message string       `json:"message"`
		Batch   models.Batch `json:"batch"`
	}
	decodeData(t, env, &result)
	assert.Equal(t, "Batch is already complete", result.Message)
	assert.Equal(t, models.StageBottled, result.Batch.CurrentStage)
}

func TestBatchUpdateCannotChangeStage(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Update Cidery")
	batch := createBatch(t, ts, token, org.ID)

	status, env := do(t, ts, http.MethodPut, "/api/batches/"+batch.ID, token, map[string]interface{}{
		"name":          "Renamed Run",
		"current_stage": "bottled",
	})
	require.Equal(t, http.StatusOK, status)

	var updated models.Batch
	decodeData(t, env, &updated)
	assert.Equal(t, "Renamed Run", updated.Name)
	assert.Equal(t, models.StagePressing, updated.CurrentStage)
}

func TestBatchTenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts)
	strangerToken, _ := registerUser(t, ts)
	org := createOrg(t, ts, ownerToken, "Isolated Cidery")
	batch := createBatch(t, ts, ownerToken, org.ID)

	// stranger cannot list, read, update, advance, or delete
	status, _ := do(t, ts, http.MethodGet, "/api/batches?org_id="+org.ID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/advance", strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, ts, http.MethodDelete, "/api/batches/"+batch.ID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// identical body to a genuinely missing batch
	status, _ = do(t, ts, http.MethodGet, "/api/batches/no-such-batch", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubRecordTenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts)
	strangerToken, _ := registerUser(t, ts)
	org := createOrg(t, ts, ownerToken, "Hidden Cidery")
	batch := createBatch(t, ts, ownerToken, org.ID)

	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/logs", ownerToken, map[string]interface{}{
		"temperature": 17.0,
	})
	require.Equal(t, http.StatusCreated, status)
	var log models.FermentationLog
	decodeData(t, env, &log)

	status, env = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/tasting-notes", ownerToken, map[string]interface{}{
		"sweetness": 3,
	})
	require.Equal(t, http.StatusCreated, status)
	var note models.TastingNote
	decodeData(t, env, &note)

	target := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	status, env = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/packaging", ownerToken, map[string]interface{}{
		"target_date": target,
		"format":      "keg",
		"quantity":    3,
	})
	require.Equal(t, http.StatusCreated, status)
	var sched models.PackagingSchedule
	decodeData(t, env, &sched)

	// a stranger hitting a real record ID must see the exact response a
	// missing ID produces, on every method of every sub-record route
	cases := []struct {
		method, real, missing string
	}{
		{http.MethodPut, "/api/logs/" + log.ID, "/api/logs/no-such-log"},
		{http.MethodDelete, "/api/logs/" + log.ID, "/api/logs/no-such-log"},
		{http.MethodPut, "/api/tasting-notes/" + note.ID, "/api/tasting-notes/no-such-note"},
		{http.MethodDelete, "/api/tasting-notes/" + note.ID, "/api/tasting-notes/no-such-note"},
		{http.MethodPut, "/api/packaging/" + sched.ID, "/api/packaging/no-such-schedule"},
		{http.MethodDelete, "/api/packaging/" + sched.ID, "/api/packaging/no-such-schedule"},
		{http.MethodPost, "/api/packaging/" + sched.ID + "/complete", "/api/packaging/no-such-schedule/complete"},
	}
	for _, c := range cases {
		status, realEnv := do(t, ts, c.method, c.real, strangerToken, map[string]interface{}{})
		assert.Equal(t, http.StatusNotFound, status, "%s %s", c.method, c.real)
		status, missingEnv := do(t, ts, c.method, c.missing, strangerToken, map[string]interface{}{})
		assert.Equal(t, http.StatusNotFound, status, "%s %s", c.method, c.missing)
		require.NotNil(t, realEnv.Error)
		require.NotNil(t, missingEnv.Error)
		assert.Equal(t, missingEnv.Error.Code, realEnv.Error.Code, "%s %s", c.method, c.real)
		assert.Equal(t, missingEnv.Error.Message, realEnv.Error.Message, "%s %s", c.method, c.real)
	}

	// the owner's records are untouched by any of it
	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/logs", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var logs []models.FermentationLog
	decodeData(t, env, &logs)
	assert.Len(t, logs, 1)
}

func TestFermentationLogCRUD(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Log Cidery")
	batch := createBatch(t, ts, token, org.ID)

	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/logs", token, map[string]interface{}{
		"temperature":      18.5,
		"specific_gravity": 1.045,
		"ph":               3.4,
		"notes":            "steady ferment",
	})
	require.Equal(t, http.StatusCreated, status)
	var log models.FermentationLog
	decodeData(t, env, &log)
	require.NotNil(t, log.Temperature)
	assert.InDelta(t, 18.5, *log.Temperature, 0.001)

	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/logs", token, nil)
	require.Equal(t, http.StatusOK, status)
	var logs []models.FermentationLog
	decodeData(t, env, &logs)
	require.Len(t, logs, 1)

	status, env = do(t, ts, http.MethodPut, "/api/logs/"+log.ID, token, map[string]interface{}{
		"temperature": 19.0,
		"notes":       "warming up",
	})
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &log)
	assert.Equal(t, "warming up", log.Notes)

	status, _ = do(t, ts, http.MethodDelete, "/api/logs/"+log.ID, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/logs", token, nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &logs)
	assert.Empty(t, logs)
}

func TestTastingNoteScoreValidation(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Tasting Cidery")
	batch := createBatch(t, ts, token, org.ID)

	// score out of range rejected before any store call
	status, _ := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/tasting-notes", token, map[string]interface{}{
		"sweetness": 6,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/tasting-notes", token, map[string]interface{}{
		"acidity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/tasting-notes", token, map[string]interface{}{
		"sweetness": 3,
		"acidity":   4,
		"body":      2,
		"aroma":     "green apple",
	})
	require.Equal(t, http.StatusCreated, status)
	var note models.TastingNote
	decodeData(t, env, &note)
	require.NotNil(t, note.Sweetness)
	assert.Equal(t, 3, *note.Sweetness)
}

func TestPackagingScheduleLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Packaging Cidery")
	batch := createBatch(t, ts, token, org.ID)

	target := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	// invalid format
	status, _ := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/packaging", token, map[string]interface{}{
		"target_date": target,
		"format":      "barrel",
		"quantity":    10,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// negative quantity
	status, _ = do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/packaging", token, map[string]interface{}{
		"target_date": target,
		"format":      "bottle",
		"quantity":    -5,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/packaging", token, map[string]interface{}{
		"target_date": target,
		"format":      "bottle",
		"quantity":    500,
	})
	require.Equal(t, http.StatusCreated, status)
	var sched models.PackagingSchedule
	decodeData(t, env, &sched)
	assert.Nil(t, sched.CompletedAt)

	// shows up as upcoming, not completed
	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/packaging?status=upcoming", token, nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.PackagingSchedule
	decodeData(t, env, &list)
	require.Len(t, list, 1)

	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/packaging?status=completed", token, nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &list)
	assert.Empty(t, list)

	// complete stamps completed_at once
	status, env = do(t, ts, http.MethodPost, "/api/packaging/"+sched.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, status)
	var completed models.PackagingSchedule
	decodeData(t, env, &completed)
	require.NotNil(t, completed.CompletedAt)
	firstStamp := *completed.CompletedAt

	// idempotent: second complete keeps the original timestamp
	status, env = do(t, ts, http.MethodPost, "/api/packaging/"+sched.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &completed)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.CompletedAt.Equal(firstStamp))

	status, env = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/packaging?status=completed", token, nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &list)
	require.Len(t, list, 1)

	// bad status filter rejected
	status, _ = do(t, ts, http.MethodGet, "/api/batches/"+batch.ID+"/packaging?status=pending", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPackagingSchedulePartialUpdate(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts)
	org := createOrg(t, ts, token, "Partial Cidery")
	batch := createBatch(t, ts, token, org.ID)

	target := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	status, env := do(t, ts, http.MethodPost, "/api/batches/"+batch.ID+"/packaging", token, map[string]interface{}{
		"target_date": target,
		"format":      "can",
		"quantity":    200,
		"notes":       "sparkling line",
	})
	require.Equal(t, http.StatusCreated, status)
	var sched models.PackagingSchedule
	decodeData(t, env, &sched)
	require.Equal(t, "sparkling line", sched.Notes)

	// omitted fields keep their values; only quantity changes
	status, env = do(t, ts, http.MethodPut, "/api/packaging/"+sched.ID, token, map[string]interface{}{
		"quantity": 250,
	})
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &sched)
	require.NotNil(t, sched.Quantity)
	assert.Equal(t, 250, *sched.Quantity)
	assert.Equal(t, "sparkling line", sched.Notes)
	assert.Equal(t, models.FormatCan, sched.Format)

	// an explicit empty string still clears them
	status, env = do(t, ts, http.MethodPut, "/api/packaging/"+sched.ID, token, map[string]interface{}{
		"notes": "",
	})
	require.Equal(t, http.StatusOK, status)
	// decode into a fresh struct: cleared notes are omitted from the
	// response (omitempty), so reusing sched would keep the stale value
	var cleared models.PackagingSchedule
	decodeData(t, env, &cleared)
	assert.Empty(t, cleared.Notes)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	ts := newTestServer(t)

	status, env := do(t, ts, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
