package integration

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"
)

// TestPassword satisfies the password policy
const TestPassword = "TestPassword123!"

var userSeq atomic.Int64

// TestUser generates unique test user credentials
func TestUser(suffix string) (username, email string) {
	n := userSeq.Add(1)
	ts := time.Now().UnixNano()
	username = fmt.Sprintf("user%d_%s", n, suffix)
	email = fmt.Sprintf("test-%d-%d-%s@example.com", ts, n, suffix)
	return
}

var (
	verificationCodePattern = regexp.MustCompile(`verification code is: (\d{6})`)
	resetLinkPattern        = regexp.MustCompile(`/reset-password/([0-9a-f]{64})`)
)

// ExtractVerificationCode pulls the 6-digit code out of a verification email's text body
func ExtractVerificationCode(text string) string {
	if m := verificationCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractResetToken pulls the reset token out of a password reset email's text body
func ExtractResetToken(text string) string {
	if m := resetLinkPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
