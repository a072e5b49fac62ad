package forms

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameLength matches the users.username column.
const MaxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// UsernameChecker looks up existing accounts for signup.
type UsernameChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// SignupForm is the account registration submission.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Password2 string
}

// SignupPayload is a validated registration. Password is still plaintext.
type SignupPayload struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Validate checks the form, including whether the username is taken.
func (f SignupForm) Validate(ctx context.Context, users UsernameChecker) (*SignupPayload, error) {
	errs := FieldErrors{}
	payload := &SignupPayload{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Username:  strings.TrimSpace(f.Username),
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
	}

	switch {
	case payload.Username == "":
		errs.Add("username", msgRequired)
	case utf8.RuneCountInString(payload.Username) > MaxUsernameLength:
		errs.Add("username", fmt.Sprintf("Ensure this value has at most %d characters.", MaxUsernameLength))
	case !usernamePattern.MatchString(payload.Username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		taken, err := users.ExistsByUsername(ctx, payload.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			errs.Add("username", "A user with that username already exists.")
		}
	}

	if payload.Email == "" {
		errs.Add("email", msgRequired)
	} else if err := ValidateEmail(payload.Email); err != nil {
		errs.Add("email", "Enter a valid email address.")
	}

	switch {
	case f.Password == "":
		errs.Add("password1", msgRequired)
	case f.Password2 == "":
		errs.Add("password2", msgRequired)
	case f.Password != f.Password2:
		errs.Add("password2", "The two password fields didn't match.")
	default:
		if err := ValidatePassword(f.Password, payload.Username); err != nil {
			errs.Add("password2", err.Error())
		}
	}

	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return payload, nil
}

// LoginForm is the login submission.
type LoginForm struct {
	Username string
	Password string
}

// Validate only checks presence; credentials are checked by the auth service.
func (f LoginForm) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(f.Username) == "" {
		errs.Add("username", msgRequired)
	}
	if f.Password == "" {
		errs.Add("password", msgRequired)
	}
	return errs.orNil()
}

// PasswordChangeForm is a logged-in user's password change.
type PasswordChangeForm struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

// Validate checks presence and the new password; the old password is
// verified by the auth service.
func (f PasswordChangeForm) Validate(username string) error {
	errs := FieldErrors{}
	if f.OldPassword == "" {
		errs.Add("old_password", msgRequired)
	}
	switch {
	case f.NewPassword1 == "":
		errs.Add("new_password1", msgRequired)
	case f.NewPassword2 == "":
		errs.Add("new_password2", msgRequired)
	case f.NewPassword1 != f.NewPassword2:
		errs.Add("new_password2", "The two password fields didn't match.")
	default:
		if err := ValidatePassword(f.NewPassword1, username); err != nil {
			errs.Add("new_password2", err.Error())
		}
	}
	return errs.orNil()
}

// ValidatePassword checks the password policy.
func ValidatePassword(password, username string) error {
	if utf8.RuneCountInString(password) < 8 {
		return fmt.Errorf("This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > 128 {
		return fmt.Errorf("This password is too long. It must not exceed 128 characters.")
	}

	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return fmt.Errorf("This password is entirely numeric.")
	}

	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return fmt.Errorf("The password is too similar to the username.")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
