package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLifecycle(t *testing.T) {
	ts := newServer(t)
	username, email := TestUser("life")

	// Signup starts a session and sends the code
	status, body, err := ts.Request("POST", "/api/v1/account/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": TestPassword,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, false, user["isVerified"])
	assert.NotContains(t, user, "password")

	status, body, err = ts.Request("GET", "/api/v1/account/auth", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, email, body["user"].(map[string]interface{})["email"])

	msg := ts.Email.Last(email)
	require.NotNil(t, msg)
	code := ExtractVerificationCode(msg.Text)
	require.Len(t, code, 6)

	// Verify exactly once
	status, body, err = ts.Request("POST", "/api/v1/account/verify/email", map[string]string{"code": code})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["user"].(map[string]interface{})["isVerified"])

	status, _, err = ts.Request("POST", "/api/v1/account/verify/email", map[string]string{"code": code})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	// Logout clears the cookie
	status, _, err = ts.Request("POST", "/api/v1/account/logout", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, _, err = ts.Request("GET", "/api/v1/account/auth", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Forgot, reset, then log in with the new password
	status, _, err = ts.Request("POST", "/api/v1/account/forgot/password", map[string]string{"email": email})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	token := ExtractResetToken(ts.Email.Last(email).Text)
	require.NotEmpty(t, token)

	const newPassword = "BrandNewPass456!"
	status, body, err = ts.Request("POST", "/api/v1/account/reset/password/"+token, map[string]string{"password": newPassword})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, body)

	status, _, err = ts.Request("POST", "/api/v1/account/reset/password/"+token, map[string]string{"password": "AnotherPass789!"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status, "reset token is single use")

	status, _, err = ts.Request("POST", "/api/v1/account/login", map[string]string{"email": email, "password": TestPassword})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, err = ts.Request("POST", "/api/v1/account/login", map[string]string{"email": email, "password": newPassword})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["token"])

	assert.Equal(t, []string{
		"Verify your email",
		"Welcome to Netflix Clone",
		"Reset your password",
		"Password reset successful",
	}, ts.Email.Subjects(email))
}

func TestSignup_DuplicateAccounts(t *testing.T) {
	ts := newServer(t)
	username, email := TestUser("dup")
	otherName, otherEmail := TestUser("dup2")

	status, _, err := ts.Request("POST", "/api/v1/account/signup", map[string]string{"username": username, "email": email, "password": TestPassword})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	status, body, err := ts.NewSession().Request("POST", "/api/v1/account/signup", map[string]string{"username": username, "email": otherEmail, "password": TestPassword})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username already exists", body["message"])

	status, body, err = ts.NewSession().Request("POST", "/api/v1/account/signup", map[string]string{"username": otherName, "email": email, "password": TestPassword})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User with this email already exists", body["message"])
}

func TestSignup_ConcurrentSameEmail(t *testing.T) {
	ts := newServer(t)
	_, email := TestUser("race")

	const attempts = 8
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, _ := TestUser("racer")
			status, _, err := ts.NewSession().Request("POST", "/api/v1/account/signup", map[string]string{"username": name, "email": email, "password": TestPassword})
			if err == nil {
				statuses[i] = status
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range statuses {
		if s == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusBadRequest, s)
		}
	}
	assert.Equal(t, 1, created, "exactly one account per email")
}

func TestLogin_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	ts := newServer(t)
	users, _ := InitializeRepositories(testDB)
	username, email := TestUser("login")
	_, err := SeedUser(context.Background(), users, username, email, TestPassword)
	require.NoError(t, err)

	status1, body1, err := ts.Request("POST", "/api/v1/account/login", map[string]string{"email": email, "password": "WrongPassword1!"})
	require.NoError(t, err)
	status2, body2, err := ts.Request("POST", "/api/v1/account/login", map[string]string{"email": "nobody@example.com", "password": "WrongPassword1!"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, status1)
	assert.Equal(t, status1, status2)
	assert.Equal(t, body1, body2)
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	ts := newServer(t)
	users, _ := InitializeRepositories(testDB)
	username, email := TestUser("expired")
	_, err := SeedPendingUser(context.Background(), users, username, email, "482913", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	status, _, err := ts.Request("POST", "/api/v1/account/verify/email", map[string]string{"code": "482913"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	ts := newServer(t)

	status, body, err := ts.Request("POST", "/api/v1/account/forgot/password", map[string]string{"email": "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])
}

func TestHealth(t *testing.T) {
	ts := newServer(t)

	status, body, err := ts.Request("GET", "/health", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["database"])
}
