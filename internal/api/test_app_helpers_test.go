package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terraincognita07/flowcast/internal/db"
	"github.com/terraincognita07/flowcast/internal/i18n"
	"github.com/terraincognita07/flowcast/internal/services"
	"gorm.io/gorm"
)

const testPassword = "StrongPass1"

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordingArchive struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (archive *recordingArchive) Bucket() string {
	return "flowcast-exports"
}

func (archive *recordingArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	archive.mu.Lock()
	defer archive.mu.Unlock()
	if archive.err != nil {
		return archive.err
	}
	archive.keys = append(archive.keys, key)
	archive.body = body
	return nil
}

type testAPI struct {
	app      *fiber.App
	handler  *Handler
	database *gorm.DB
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithArchive(t, nil)
}

func newTestAPIWithArchive(t *testing.T, archive services.ArchiveStore) *testAPI {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "flowcast-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	i18nManager, err := i18n.NewEmbeddedManager("en")
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	handler, err := NewHandler(NewDependencies(db.NewRepositories(database), nil, nil, archive), Options{
		SecretKey: "test-secret-key-with-enough-length-123",
		Location:  time.UTC,
		I18n:      i18nManager,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	handler.now = func() time.Time { return testNow }

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	app.Use(recover.New())
	RegisterRoutes(app, handler)
	return &testAPI{app: app, handler: handler, database: database}
}

func (api *testAPI) request(t *testing.T, method string, path string, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	return api.do(t, request)
}

func (api *testAPI) do(t *testing.T, request *http.Request) (*http.Response, envelope) {
	t.Helper()

	response, err := api.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	var payload envelope
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode response %s: %v", string(raw), err)
		}
	} else {
		payload.Data = raw
	}
	return response, payload
}

func (api *testAPI) expect(t *testing.T, method string, path string, token string, body any, status int) envelope {
	t.Helper()
	response, payload := api.request(t, method, path, token, body)
	if response.StatusCode != status {
		t.Fatalf("%s %s expected status %d, got %d (%s %s)", method, path, status, response.StatusCode, payload.Code, payload.Message)
	}
	return payload
}

func decodeData(t *testing.T, payload envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(payload.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", string(payload.Data), err)
	}
}

type testSession struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

func (api *testAPI) register(t *testing.T, email string) testSession {
	t.Helper()

	payload := api.expect(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": testPassword,
	}, fiber.StatusCreated)

	var data struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
	}
	decodeData(t, payload, &data)
	return testSession{UserID: data.User.UserID, AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}
}

func (api *testAPI) onboardedUser(t *testing.T, email string) testSession {
	t.Helper()

	session := api.register(t, email)
	api.expect(t, http.MethodPost, "/api/v1/auth/onboarding/complete", session.AccessToken, map[string]any{
		"avg_cycle_length": 28,
	}, fiber.StatusOK)
	return session
}

func (api *testAPI) logPeriod(t *testing.T, token string, start string) cycleRecordResponse {
	t.Helper()

	payload := api.expect(t, http.MethodPost, "/api/v1/cycles/period", token, map[string]any{
		"period_start_date": start,
	}, fiber.StatusCreated)

	var data struct {
		Record cycleRecordResponse `json:"record"`
	}
	decodeData(t, payload, &data)
	return data.Record
}

var errArchiveDown = errors.New("archive down")
