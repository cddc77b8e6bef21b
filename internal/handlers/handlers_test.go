package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/database"
	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/routes"
	"github.com/elod87/service-book-2/internal/token"
	"github.com/elod87/service-book-2/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		AppPort:     "0",
		ClientURL:   "http://client.test",
		EndpointURL: "http://api.test",
		Secrets: config.TokenSecrets{
			Session:       "session-secret",
			Refresh:       "refresh-secret",
			GoogleBridge:  "google-secret",
			PasswordReset: "reset-secret",
			MailActivate:  "mail-secret",
			AdminApproval: "approval-secret",
		},
	}
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := testConfig()
	app := fiber.New()
	routes.Register(app, db, cfg, zap.NewNop(), nil)

	return app, db, cfg
}

// doJSON performs a request against the app with an optional JSON body
// and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, bearer string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func tokenMaker(cfg *config.Config) *token.Maker {
	return token.NewMaker(cfg.Secrets)
}

// sessionToken mints a valid session token; the auth middleware only
// verifies the token, not user existence.
func sessionToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	signed, err := tokenMaker(cfg).Generate(token.Session, userID)
	require.NoError(t, err)
	return signed
}

// createApprovedUser inserts a user that can log in with the given
// password.
func createApprovedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Name:       "Test User",
		Email:      email,
		Password:   hash,
		IsApproved: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createCustomer(t *testing.T, app *fiber.App, auth string, name, phone string) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/customers/", map[string]interface{}{
		"name":  name,
		"phone": phone,
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var customer map[string]interface{}
	decodeBody(t, resp, &customer)
	return customer
}

func createDevice(t *testing.T, app *fiber.App, auth, manufacturer, model string) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/devices/", map[string]interface{}{
		"manufacturer": manufacturer,
		"model":        model,
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var device map[string]interface{}
	decodeBody(t, resp, &device)
	return device
}

func createAction(t *testing.T, app *fiber.App, auth, name string, price float64) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/actions/", map[string]interface{}{
		"name":  name,
		"price": price,
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var action map[string]interface{}
	decodeBody(t, resp, &action)
	return action
}
