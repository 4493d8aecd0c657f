package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/utils"
)

const (
	// stepUpThreshold is the consecutive-failure count at which a
	// date-of-birth-bearing account is challenged instead of rejected.
	stepUpThreshold = 5

	// birthdayLockDuration is the cool-down applied after a single wrong
	// birthday answer. Independent of the failure counter.
	birthdayLockDuration = time.Minute
)

// Sentinel errors surfaced by the authentication flows. Handlers map these to
// HTTP responses.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrEmailDelivery      = errors.New("failed to send verification email")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StepUpRequiredError signals that the password was wrong often enough that
// the caller must complete the birthday + OTP challenge. It is a control-flow
// signal rather than a terminal failure.
type StepUpRequiredError struct {
	Email string
}

func (e *StepUpRequiredError) Error() string {
	return "additional verification required"
}

// AccountLockedError rejects an attempt while the account is in its lockout
// window.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC1123))
}

// UserStore persists user accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// Mailer delivers one-time codes. Send outcome is reported synchronously.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// TokenIssuer mints signed session tokens embedding identity claims.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string, role models.Role) (string, error)
}

// AuthService owns the account credential lifecycle: registration with email
// verification, password login with progressive lockout, and the two-factor
// step-up challenge.
type AuthService struct {
	users  UserStore
	mailer Mailer
	tokens TokenIssuer
	now    func() time.Time
}

// AuthOption customizes AuthService construction.
type AuthOption func(*AuthService)

// WithClock injects a custom clock, useful for tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService constructs an AuthService with its collaborators.
func NewAuthService(users UserStore, mailer Mailer, tokens TokenIssuer, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:  users,
		mailer: mailer,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	Address     string
	DateOfBirth *time.Time
	Role        models.Role
}

// Register creates a new unverified account. The verification code is mailed
// before the account is persisted; a delivery failure aborts registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, in.Email, code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	user := &models.User{
		Name:              in.Name,
		Email:             in.Email,
		Phone:             in.Phone,
		Address:           in.Address,
		PasswordHash:      passwordHash,
		Role:              in.Role,
		IsVerified:        false,
		VerificationToken: &code,
		DateOfBirth:       in.DateOfBirth,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Verify completes registration by matching the emailed code. The code stays
// valid until consumed or superseded by a new registration.
func (s *AuthService) Verify(ctx context.Context, email, code string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCode
		}
		return "", nil, err
	}

	if user.VerificationToken == nil || !codesEqual(*user.VerificationToken, code) {
		return "", nil, ErrInvalidCode
	}

	if err := s.users.Update(ctx, user.ID, map[string]any{
		"is_verified":        true,
		"verification_token": nil,
	}); err != nil {
		return "", nil, err
	}
	user.IsVerified = true
	user.VerificationToken = nil

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// LoginResult is returned on any successful authentication.
type LoginResult struct {
	Token string
	User  *models.User
}

// Login authenticates a verified account. Accounts with a date of birth run
// the lockout policy: five consecutive password failures trigger the step-up
// challenge, and an active lock window rejects the attempt outright. Accounts
// without a date of birth stay on the legacy single-check path.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	now := s.now()

	if user.DateOfBirth != nil {
		if user.IsLocked && user.LockUntil != nil && now.Before(*user.LockUntil) {
			return nil, &AccountLockedError{Until: *user.LockUntil}
		}

		if !utils.CheckPassword(user.PasswordHash, password) {
			attempts := user.FailedLoginAttempts + 1
			if err := s.users.Update(ctx, user.ID, map[string]any{
				"failed_login_attempts": attempts,
			}); err != nil {
				return nil, err
			}
			if attempts >= stepUpThreshold {
				return nil, &StepUpRequiredError{Email: user.Email}
			}
			return nil, ErrInvalidCredentials
		}

		if err := s.users.Update(ctx, user.ID, map[string]any{
			"failed_login_attempts": 0,
			"last_login_at":         now,
		}); err != nil {
			return nil, err
		}
		user.FailedLoginAttempts = 0
		user.LastLoginAt = &now
	} else {
		if !utils.CheckPassword(user.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}

		if err := s.users.Update(ctx, user.ID, map[string]any{
			"last_login_at": now,
		}); err != nil {
			return nil, err
		}
		user.LastLoginAt = &now
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user}, nil
}

// StepUpBirthday answers the first step-up factor. A single wrong answer
// locks the account for the fixed cool-down window, regardless of the prior
// failure count. A correct answer mails a fresh OTP for the second factor.
func (s *AuthService) StepUpBirthday(ctx context.Context, email string, birthday time.Time) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// No row to lock, but the caller sees the same rejection.
			return &AccountLockedError{Until: s.now().Add(birthdayLockDuration)}
		}
		return err
	}

	if user.DateOfBirth == nil || !sameCalendarDate(*user.DateOfBirth, birthday) {
		until := s.now().Add(birthdayLockDuration)
		if err := s.users.Update(ctx, user.ID, map[string]any{
			"is_locked":  true,
			"lock_until": until,
		}); err != nil {
			return err
		}
		return &AccountLockedError{Until: until}
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}

	if err := s.users.Update(ctx, user.ID, map[string]any{
		"step_up_token": code,
	}); err != nil {
		return err
	}

	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	return nil
}

// StepUpOTP answers the second step-up factor and, on success, clears the
// lock state and failure counter and issues a session token. LastLoginAt is
// deliberately left untouched on this path.
func (s *AuthService) StepUpOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	if user.StepUpToken == nil || !codesEqual(*user.StepUpToken, code) {
		return nil, ErrInvalidCode
	}

	if err := s.users.Update(ctx, user.ID, map[string]any{
		"failed_login_attempts": 0,
		"is_locked":             false,
		"lock_until":            nil,
		"step_up_token":         nil,
	}); err != nil {
		return nil, err
	}
	user.FailedLoginAttempts = 0
	user.IsLocked = false
	user.LockUntil = nil
	user.StepUpToken = nil

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user}, nil
}

// ChangePassword re-verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	passwordHash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}

	return s.users.Update(ctx, user.ID, map[string]any{
		"password_hash": passwordHash,
	})
}

// generateOTP returns a 6-digit code uniformly distributed over
// [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// codesEqual compares one-time codes in constant time.
func codesEqual(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// sameCalendarDate compares two timestamps by calendar date only.
func sameCalendarDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
