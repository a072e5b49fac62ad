package service

import (
	"context"
	"errors"

	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidLogin     = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgWrongOldPassword = "Your old password was entered incorrectly. Please enter it again."
)

type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// NewAuthService hashes with bcrypt.DefaultCost unless cost is set.
func NewAuthService(userRepo repository.UserRepository, cost ...int) *AuthService {
	c := bcrypt.DefaultCost
	if len(cost) > 0 && cost[0] >= bcrypt.MinCost {
		c = cost[0]
	}
	return &AuthService{userRepo: userRepo, bcryptCost: c}
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// Signup validates the form and creates the account.
func (s *AuthService) Signup(ctx context.Context, form forms.SignupForm) (*models.User, error) {
	payload, err := form.Validate(ctx, s.userRepo)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Password:  string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.RecordEvent("signup")
	observability.Logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials. Wrong username or password yields a non-field error.
func (s *AuthService) Login(ctx context.Context, form forms.LoginForm) (*models.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, form.Username)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, invalidLogin()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			observability.Logger.WarnContext(ctx, "failed login", "username", form.Username)
			return nil, invalidLogin()
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// ChangePassword replaces the password of userID after checking the old one
// and returns the updated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, form forms.PasswordChangeForm) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(user.Username); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.OldPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			errs := forms.FieldErrors{}
			errs.Add("old_password", msgWrongOldPassword)
			return nil, errs
		}
		return nil, models.NewInternalError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.NewPassword1), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, err
	}
	user.Password = string(hash)

	observability.RecordEvent("password_changed")
	observability.Logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return user, nil
}

func invalidLogin() forms.FieldErrors {
	errs := forms.FieldErrors{}
	errs.Add(forms.NonFieldErrors, msgInvalidLogin)
	return errs
}
