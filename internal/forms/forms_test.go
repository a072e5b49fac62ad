package forms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type stubGroups struct {
	ids map[uint]bool
	err error
}

func (s stubGroups) Exists(_ context.Context, id uint) (bool, error) {
	return s.ids[id], s.err
}

type stubUsers map[string]bool

func (s stubUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return s[username], nil
}

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	var fe FieldErrors
	require.True(t, errors.As(err, &fe), "expected FieldErrors, got %v", err)
	return fe
}

func TestPostForm_Valid(t *testing.T) {
	groups := stubGroups{ids: map[uint]bool{7: true}}
	payload, err := PostForm{Text: "  Новый пост ", Group: "7", ImageName: "small.gif", ImageData: smallGIF}.
		Validate(context.Background(), groups, 1024)

	require.NoError(t, err)
	assert.Equal(t, "Новый пост", payload.Text)
	require.NotNil(t, payload.GroupID)
	assert.Equal(t, uint(7), *payload.GroupID)
	require.NotNil(t, payload.Image)
	assert.Equal(t, "small.gif", payload.Image.Filename)
}

func TestPostForm_GroupAndImageOptional(t *testing.T) {
	payload, err := PostForm{Text: "text"}.Validate(context.Background(), stubGroups{}, 1024)
	require.NoError(t, err)
	assert.Nil(t, payload.GroupID)
	assert.Nil(t, payload.Image)
}

func TestPostForm_Invalid(t *testing.T) {
	groups := stubGroups{ids: map[uint]bool{1: true}}
	tests := []struct {
		name  string
		form  PostForm
		field string
	}{
		{"empty text", PostForm{Text: ""}, "text"},
		{"whitespace text", PostForm{Text: "  \n "}, "text"},
		{"unknown group", PostForm{Text: "x", Group: "2"}, "group"},
		{"non-numeric group", PostForm{Text: "x", Group: "abc"}, "group"},
		{"not an image", PostForm{Text: "x", ImageName: "a.gif", ImageData: []byte("nope")}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := tt.form.Validate(context.Background(), groups, 1024)
			assert.Nil(t, payload)
			fe := fieldErrors(t, err)
			assert.True(t, fe.Has(tt.field), "errors: %v", fe)
		})
	}
}

func TestPostForm_LookupFailureIsNotFieldError(t *testing.T) {
	lookupErr := errors.New("db down")
	_, err := PostForm{Text: "x", Group: "1"}.Validate(context.Background(), stubGroups{err: lookupErr}, 1024)
	assert.ErrorIs(t, err, lookupErr)
	var fe FieldErrors
	assert.False(t, errors.As(err, &fe))
}

func TestCommentForm(t *testing.T) {
	payload, err := CommentForm{Text: " Хороший пост "}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Хороший пост", payload.Text)

	payload, err = CommentForm{Text: "   "}.Validate()
	assert.Nil(t, payload)
	assert.Equal(t, []string{msgRequired}, fieldErrors(t, err).Get("text"))
}

func TestSignupForm(t *testing.T) {
	valid := SignupForm{
		FirstName: "Leo",
		LastName:  "Tolstoy",
		Username:  "leo",
		Email:     "leo@example.com",
		Password:  "war-and-peace-1869",
		Password2: "war-and-peace-1869",
	}

	payload, err := valid.Validate(context.Background(), stubUsers{})
	require.NoError(t, err)
	assert.Equal(t, "leo", payload.Username)
	assert.Equal(t, "Leo", payload.FirstName)

	tests := []struct {
		name   string
		mutate func(*SignupForm)
		field  string
	}{
		{"missing username", func(f *SignupForm) { f.Username = "" }, "username"},
		{"bad username chars", func(f *SignupForm) { f.Username = "leo tolstoy" }, "username"},
		{"long username", func(f *SignupForm) { f.Username = strings.Repeat("a", 151) }, "username"},
		{"bad email", func(f *SignupForm) { f.Email = "not-an-email" }, "email"},
		{"mismatch", func(f *SignupForm) { f.Password2 = "other-password-1" }, "password2"},
		{"short password", func(f *SignupForm) { f.Password, f.Password2 = "abc1", "abc1" }, "password2"},
		{"missing password", func(f *SignupForm) { f.Password = "" }, "password1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)
			_, err := form.Validate(context.Background(), stubUsers{})
			assert.True(t, fieldErrors(t, err).Has(tt.field))
		})
	}

	_, err = valid.Validate(context.Background(), stubUsers{"leo": true})
	assert.True(t, fieldErrors(t, err).Has("username"))
}

func TestLoginForm(t *testing.T) {
	assert.NoError(t, LoginForm{Username: "leo", Password: "x"}.Validate())
	fe := fieldErrors(t, LoginForm{}.Validate())
	assert.True(t, fe.Has("username"))
	assert.True(t, fe.Has("password"))
}

func TestPasswordChangeForm(t *testing.T) {
	valid := PasswordChangeForm{OldPassword: "old", NewPassword1: "fresh-secret-7", NewPassword2: "fresh-secret-7"}
	assert.NoError(t, valid.Validate("leo"))

	fe := fieldErrors(t, PasswordChangeForm{}.Validate("leo"))
	assert.True(t, fe.Has("old_password"))
	assert.True(t, fe.Has("new_password1"))

	mismatch := valid
	mismatch.NewPassword2 = "something-else-8"
	assert.True(t, fieldErrors(t, mismatch.Validate("leo")).Has("new_password2"))

	weak := PasswordChangeForm{OldPassword: "old", NewPassword1: "leo12345", NewPassword2: "leo12345"}
	assert.True(t, fieldErrors(t, weak.Validate("leo")).Has("new_password2"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Too Short", "abc1", true},
		{"Too Long", strings.Repeat("b", 129), true},
		{"Entirely Numeric", "1234567890", true},
		{"Contains Username", "leo-password", true},
		{"Unicode Characters", "ÅngstromPass12!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, "leo")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFieldErrors_Error(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("text", "a")
	fe.Add("group", "b")
	assert.Equal(t, "invalid form: group: b; text: a", fe.Error())
}
