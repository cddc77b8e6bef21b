package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/token"
)

func TestRegisterCreatesLockedAccount(t *testing.T) {
	app, db, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/users/", map[string]string{
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, db.Where("email = ?", "jane@example.com").First(&user).Error)
	assert.False(t, user.IsApproved)
	assert.False(t, user.IsValidMail)
	assert.NotEqual(t, "secret123", user.Password)
}

func TestRegisterValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	tooShort := doJSON(t, app, http.MethodPost, "/users/", map[string]string{
		"name": "ab", "email": "a@example.com", "password": "x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, tooShort.StatusCode)

	badMail := doJSON(t, app, http.MethodPost, "/users/", map[string]string{
		"name": "Jane Doe", "email": "not-a-mail", "password": "x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, badMail.StatusCode)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	app, db, _ := newTestApp(t)
	createApprovedUser(t, db, "jane@example.com", "secret123")

	resp := doJSON(t, app, http.MethodPost, "/users/", map[string]string{
		"name": "Jane Again", "email": "jane@example.com", "password": "x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "already registered")
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "secret123")

	resp := doJSON(t, app, http.MethodGet, "/users/me", nil,
		sessionToken(t, cfg, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.NotContains(t, body, "password")
}

func TestMeRequiresToken(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	app, db, _ := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "oldpassword")

	// the same message comes back for unknown addresses
	unknown := doJSON(t, app, http.MethodPost, "/users/forgotpassword",
		map[string]string{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, unknown.StatusCode)

	known := doJSON(t, app, http.MethodPost, "/users/forgotpassword",
		map[string]string{"email": "jane@example.com"}, "")
	require.Equal(t, http.StatusOK, known.StatusCode)

	// establish a session so we can verify the reset revokes it
	login := doJSON(t, app, http.MethodPost, "/auth/",
		loginRequestBody("jane@example.com", "oldpassword"), "")
	require.Equal(t, http.StatusOK, login.StatusCode)

	var record models.PasswordResetToken
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&record).Error)

	reset := doJSON(t, app, http.MethodPost, "/users/resetpassword",
		map[string]string{"password": "newpassword"}, record.Token)
	require.Equal(t, http.StatusOK, reset.StatusCode)

	// old password no longer works, the new one does
	oldLogin := doJSON(t, app, http.MethodPost, "/auth/",
		loginRequestBody("jane@example.com", "oldpassword"), "")
	assert.Equal(t, http.StatusBadRequest, oldLogin.StatusCode)

	newLogin := doJSON(t, app, http.MethodPost, "/auth/",
		loginRequestBody("jane@example.com", "newpassword"), "")
	assert.Equal(t, http.StatusOK, newLogin.StatusCode)

	// the reset token is single use
	again := doJSON(t, app, http.MethodPost, "/users/resetpassword",
		map[string]string{"password": "thirdpassword"}, record.Token)
	assert.Equal(t, http.StatusBadRequest, again.StatusCode)
}

func TestPasswordResetRevokesRefreshTokens(t *testing.T) {
	app, db, _ := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "oldpassword")

	login := doJSON(t, app, http.MethodPost, "/auth/",
		loginRequestBody("jane@example.com", "oldpassword"), "")
	require.Equal(t, http.StatusOK, login.StatusCode)

	forgot := doJSON(t, app, http.MethodPost, "/users/forgotpassword",
		map[string]string{"email": "jane@example.com"}, "")
	require.Equal(t, http.StatusOK, forgot.StatusCode)

	var record models.PasswordResetToken
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&record).Error)

	reset := doJSON(t, app, http.MethodPost, "/users/resetpassword",
		map[string]string{"password": "newpassword"}, record.Token)
	require.Equal(t, http.StatusOK, reset.StatusCode)

	var remaining int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ?", user.ID).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)
}

func TestChangePassword(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "oldpassword")
	auth := sessionToken(t, cfg, user.ID)

	wrong := doJSON(t, app, http.MethodPost, "/users/changepassword", map[string]string{
		"currentPassword": "nope", "password": "newpassword",
	}, auth)
	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)

	ok := doJSON(t, app, http.MethodPost, "/users/changepassword", map[string]string{
		"currentPassword": "oldpassword", "password": "newpassword",
	}, auth)
	require.Equal(t, http.StatusOK, ok.StatusCode)

	login := doJSON(t, app, http.MethodPost, "/auth/",
		loginRequestBody("jane@example.com", "newpassword"), "")
	assert.Equal(t, http.StatusOK, login.StatusCode)
}

func TestValidateMail(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "secret123")

	activation, err := tokenMaker(cfg).Generate(token.MailActivation, user.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/users/validate/%s/%s", user.ID, activation), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.True(t, got.IsValidMail)
}

func TestValidateMailRejectsTokenForOtherUser(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "secret123")
	other := createApprovedUser(t, db, "other@example.com", "secret123")

	activation, err := tokenMaker(cfg).Generate(token.MailActivation, other.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/users/validate/%s/%s", user.ID, activation), nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.False(t, got.IsValidMail)
}

func TestApproveGrantsAndRevokesAccess(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "secret123")
	require.NoError(t, db.Model(user).Update("is_approved", false).Error)

	approval, err := tokenMaker(cfg).Generate(token.AdminApproval, user.ID)
	require.NoError(t, err)

	grant := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/users/approve/%s/%s/1", user.ID, approval), nil, "")
	require.Equal(t, http.StatusOK, grant.StatusCode)
	assert.Contains(t, readBody(t, grant), "granted")

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.True(t, got.IsApproved)

	revoke := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/users/approve/%s/%s/0", user.ID, approval), nil, "")
	require.Equal(t, http.StatusOK, revoke.StatusCode)
	assert.Contains(t, readBody(t, revoke), "revoked")

	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.False(t, got.IsApproved)
}

func TestUpdateUserName(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createApprovedUser(t, db, "jane@example.com", "secret123")

	resp := doJSON(t, app, http.MethodPut, "/users/"+user.ID.String(),
		map[string]string{"name": "Jane R. Doe"}, sessionToken(t, cfg, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, "Jane R. Doe", got.Name)
}
