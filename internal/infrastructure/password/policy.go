package password

import (
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
)

const (
	MinLength = 8
	// MaxBytes is the bcrypt input limit
	MaxBytes = 72
)

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "11111111": {},
	"qwerty123": {}, "qwertyuiop": {}, "1q2w3e4r": {}, "1q2w3e4r5t": {},
	"iloveyou": {}, "sunshine": {}, "princess": {}, "football": {},
	"baseball": {}, "welcome1": {}, "admin123": {}, "letmein1": {},
	"abcd1234": {}, "asdf1234": {}, "qwer1234": {}, "zxcvbnm1": {},
	"superman": {}, "trustno1": {}, "starwars": {}, "whatever": {},
}

// Validate checks a new password and its confirmation. The returned slice is
// empty when the password is acceptable.
func Validate(newPassword, confirm string) []apperrors.FieldError {
	var violations []apperrors.FieldError

	if newPassword != confirm {
		violations = append(violations, apperrors.FieldError{
			Field:   "new_password_confirm",
			Message: "비밀번호가 일치하지 않습니다.",
		})
	}

	add := func(msg string) {
		violations = append(violations, apperrors.FieldError{Field: "new_password", Message: msg})
	}

	if utf8.RuneCountInString(newPassword) < MinLength {
		add("비밀번호가 너무 짧습니다. 최소 8자 이상이어야 합니다.")
	}
	if len(newPassword) > MaxBytes {
		add("비밀번호가 너무 깁니다.")
	}
	if newPassword != "" && isNumeric(newPassword) {
		add("비밀번호가 전부 숫자로 되어 있습니다.")
	}
	if _, ok := commonPasswords[strings.ToLower(newPassword)]; ok {
		add("너무 일상적인 단어를 사용한 비밀번호입니다.")
	}

	return violations
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
