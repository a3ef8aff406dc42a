package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the structural floor for user-chosen passwords.
	MinPasswordLength = 12
	// minStrengthScore is the zxcvbn score (0-4) required of new passwords.
	minStrengthScore = 4 - 1

	tempPasswordBytes  = 12
	tempPasswordLength = 16
)

// HashPassword generates a bcrypt hash at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a password against a stored bcrypt hash.
// A plain mismatch returns (false, nil); only malformed hashes or engine
// failures surface as errors.
func VerifyPassword(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

// StrengthResult is the outcome of scoring a candidate password.
type StrengthResult struct {
	Valid    bool     `json:"valid"`
	Score    int      `json:"score"`
	Feedback []string `json:"feedback"`
}

// ValidatePasswordStrength checks a candidate password against the length
// floor, the username-substring rule, and the zxcvbn estimator seeded with
// the username as a known weak token. Weak passwords come back with
// feedback rather than an error.
func ValidatePasswordStrength(password, username string) StrengthResult {
	feedback := []string{}

	if len(password) < MinPasswordLength {
		feedback = append(feedback, fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}

	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		feedback = append(feedback, "Password must not contain your username.")
	}

	var userInputs []string
	if username != "" {
		userInputs = []string{username}
	}
	score := zxcvbn.PasswordStrength(password, userInputs).Score

	if score < minStrengthScore {
		feedback = append(feedback, "Password is too predictable; use a longer or less common phrase.")
	}

	return StrengthResult{
		Valid:    len(feedback) == 0 && score >= minStrengthScore,
		Score:    score,
		Feedback: feedback,
	}
}

// GenerateTempPassword returns a cryptographically random 16-character
// URL-safe password for admin-issued temporary credentials.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp password: %w", err)
	}
	s := base64.RawURLEncoding.EncodeToString(buf)
	if len(s) > tempPasswordLength {
		s = s[:tempPasswordLength]
	}
	return s, nil
}
