package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"bugboard/internal/handlers"
	"bugboard/internal/middleware"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/internal/services"
	"bugboard/pkg/blobstore"
	"bugboard/pkg/mailer"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter int64

// setupApp builds a Fiber app over a fresh in-memory SQLite database with all
// handlers and services wired, plus a seeded admin account.
func setupApp(t *testing.T) (*fiber.App, *blobstore.MemoryStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Issue{}, &models.Attachment{}, &models.Team{}))

	userRepo := repositories.NewGORMUserRepository(db)
	issueRepo := repositories.NewGORMIssueRepository(db)
	attachmentRepo := repositories.NewGORMAttachmentRepository(db)
	teamRepo := repositories.NewGORMTeamRepository(db)

	blobs := blobstore.NewMemoryStore()
	mail := mailer.NewLogMailer()

	creds := services.NewCredentialStore(10)
	tokens := services.NewTokenService(userRepo, "test_jwt_secret", 30*time.Minute)
	authService := services.NewAuthService(userRepo, tokens, creds, mail)
	userService := services.NewUserService(userRepo, creds, mail)
	issueService := services.NewIssueService(issueRepo, userRepo, attachmentRepo, blobs)
	attachmentService := services.NewAttachmentService(attachmentRepo, issueRepo, blobs, 0)
	teamService := services.NewTeamService(teamRepo, userRepo, issueRepo)

	// Seed the bootstrap admin.
	hashed, err := creds.HashPassword("admin-password")
	assert.NoError(t, err)
	admin := &models.User{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "admin@example.com",
		Password:  hashed,
		Role:      models.RoleAdmin,
		Active:    true,
	}
	assert.NoError(t, userRepo.Create(admin))

	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	issueHandler := handlers.NewIssueHandler(issueService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	teamHandler := handlers.NewTeamHandler(teamService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(tokens))
	authHandler.RegisterProtectedRoutes(protected)
	userHandler.RegisterRoutes(protected)
	issueHandler.RegisterRoutes(protected)
	attachmentHandler.RegisterRoutes(protected)
	teamHandler.RegisterRoutes(protected)

	return app, blobs
}

// TestMain runs setup and teardown for all tests.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	decode(t, resp, &body)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func TestLoginAndProtectedAccess(t *testing.T) {
	app, _ := setupApp(t)

	// Wrong password.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// No token on a protected route.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/issues", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Garbage token.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/issues", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	token := login(t, app, "admin@example.com", "admin-password")
	resp = doJSON(t, app, http.MethodGet, "/api/v1/issues", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decode(t, resp, &me)
	assert.Equal(t, "admin@example.com", me.Email)
}

func TestUserManagementFlow(t *testing.T) {
	app, _ := setupApp(t)
	adminToken := login(t, app, "admin@example.com", "admin-password")

	// Admin creates a regular account.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"first_name": "Uma",
		"last_name":  "User",
		"email":      "uma@example.com",
		"password":   "secret1",
		"role":       "User",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate email conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"first_name": "Other",
		"last_name":  "Person",
		"email":      "uma@example.com",
		"password":   "secret2",
		"role":       "User",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// The new account can log in but not create users.
	userToken := login(t, app, "uma@example.com", "secret1")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", userToken, map[string]string{
		"first_name": "Nope",
		"last_name":  "Nope",
		"email":      "nope@example.com",
		"password":   "secret3",
		"role":       "User",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Nor list the directory.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Find the new account's id.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	decode(t, resp, &users)
	var umaID uint
	for _, u := range users {
		if u.Email == "uma@example.com" {
			umaID = u.ID
		}
	}
	assert.NotZero(t, umaID)

	// Deactivate it; the live token stops working on the next request.
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", umaID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// And so does login.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "uma@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestIssueLifecycleFlow(t *testing.T) {
	app, _ := setupApp(t)
	adminToken := login(t, app, "admin@example.com", "admin-password")

	// Admin creates a worker account.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"first_name": "Wim",
		"last_name":  "Worker",
		"email":      "wim@example.com",
		"password":   "secret1",
		"role":       "User",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var createUserResp struct {
		User models.User `json:"user"`
	}
	decode(t, resp, &createUserResp)
	workerToken := login(t, app, "wim@example.com", "secret1")

	// Worker opens an issue. A smuggled status field is ignored.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/issues", workerToken, map[string]string{
		"title":       "Search returns stale results",
		"description": "The index is hours behind",
		"priority":    "high",
		"type":        "bug",
		"status":      "Done",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var issue models.Issue
	decode(t, resp, &issue)
	assert.Equal(t, models.StatusTodo, issue.Status)
	assert.Nil(t, issue.ResolvedAt)

	// Duplicate title conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/issues", workerToken, map[string]string{
		"title":       "Search returns stale results",
		"description": "Same again",
		"type":        "bug",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	issuePath := fmt.Sprintf("/api/v1/issues/%d", issue.ID)

	// Illegal jump for a non-admin.
	resp = doJSON(t, app, http.MethodPatch, issuePath, workerToken, map[string]string{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Legal walk: Todo -> InProgress -> Done.
	resp = doJSON(t, app, http.MethodPatch, issuePath, workerToken, map[string]string{"status": "InProgress"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, app, http.MethodPatch, issuePath, workerToken, map[string]string{"status": "Done"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &issue)
	assert.Equal(t, models.StatusDone, issue.Status)
	assert.NotNil(t, issue.ResolvedAt)

	// Done locks the issue for the worker, not for the admin.
	resp = doJSON(t, app, http.MethodPatch, issuePath, workerToken, map[string]string{"description": "post-close edit"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, app, http.MethodPatch, issuePath, adminToken, map[string]string{"description": "post-close edit"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Archive: admin only, then locked for the worker.
	resp = doJSON(t, app, http.MethodPost, issuePath+"/archive", workerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, app, http.MethodPost, issuePath+"/archive", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &issue)
	assert.True(t, issue.Archived)

	// Double archive conflicts.
	resp = doJSON(t, app, http.MethodPost, issuePath+"/archive", adminToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Worker cannot delete the archived issue; its creator normally could,
	// but archival reserves deletion to admins.
	resp = doJSON(t, app, http.MethodDelete, issuePath, workerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Stats reflect the one resolved, archived issue.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/issues/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats repositories.IssueCounts
	decode(t, resp, &stats)
	assert.EqualValues(t, 1, stats.Total)
	assert.EqualValues(t, 1, stats.Archived)
	assert.EqualValues(t, 1, stats.Resolved)

	// Admin deletes it.
	resp = doJSON(t, app, http.MethodDelete, issuePath, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, app, http.MethodGet, issuePath, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	app, blobs := setupApp(t)
	adminToken := login(t, app, "admin@example.com", "admin-password")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/issues", adminToken, map[string]string{
		"title":       "Needs evidence",
		"description": "Attach the screenshot here",
		"type":        "bug",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var issue models.Issue
	decode(t, resp, &issue)

	// Build a multipart upload with an explicit part content type.
	payload := []byte("pretend this is a png")
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="evidence.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write(payload)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/issues/%d/attachments", issue.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	uploadResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, uploadResp.StatusCode)
	var attachment models.Attachment
	decode(t, uploadResp, &attachment)
	assert.Equal(t, "evidence.png", attachment.FileName)
	assert.Equal(t, 1, blobs.Len())

	// Disallowed content type is rejected.
	buf.Reset()
	writer = multipart.NewWriter(&buf)
	header = textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="run.sh"`)
	header.Set("Content-Type", "application/x-sh")
	part, err = writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh"))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/issues/%d/attachments", issue.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rejectResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rejectResp.StatusCode)
	rejectResp.Body.Close()

	// Download round-trips the bytes and headers.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/attachments/%d/download", attachment.ID), nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	downloadResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, downloadResp.StatusCode)
	assert.Equal(t, "image/png", downloadResp.Header.Get("Content-Type"))
	assert.Contains(t, downloadResp.Header.Get("Content-Disposition"), "evidence.png")
	data, err := io.ReadAll(downloadResp.Body)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)
	downloadResp.Body.Close()

	// Deleting the issue cascades over the attachment and its blob.
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/issues/%d", issue.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, blobs.Len())

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/attachments/%d", attachment.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTeamFlow(t *testing.T) {
	app, _ := setupApp(t)
	adminToken := login(t, app, "admin@example.com", "admin-password")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/teams", adminToken, map[string]string{
		"name":        "Platform",
		"description": "Owns infrastructure",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var team models.Team
	decode(t, resp, &team)

	// Duplicate name conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/teams", adminToken, map[string]string{
		"name": "Platform",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Create a member and add them.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"first_name": "Mia",
		"last_name":  "Member",
		"email":      "mia@example.com",
		"password":   "secret1",
		"role":       "User",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var createUserResp struct {
		User models.User `json:"user"`
	}
	decode(t, resp, &createUserResp)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/teams/%d/members/%d", team.ID, createUserResp.User.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/teams/%d/members", team.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var members []models.User
	decode(t, resp, &members)
	assert.Len(t, members, 1)

	// Bind an issue to the team.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/issues", adminToken, map[string]string{
		"title":       "Terraform drift",
		"description": "State no longer matches reality",
		"type":        "bug",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var issue models.Issue
	decode(t, resp, &issue)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/teams/%d/issues/%d", team.ID, issue.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &issue)
	assert.NotNil(t, issue.TeamID)
	assert.Equal(t, team.ID, *issue.TeamID)

	// Deleting the team detaches the issue instead of deleting it.
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/teams/%d", team.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/issues/%d", issue.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &issue)
	assert.Nil(t, issue.TeamID)
}
