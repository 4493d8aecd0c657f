package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/utils"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*models.User)}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	s.users[user.Email] = &clone
	return nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			applyUserFields(user, fields)
			return nil
		}
	}
	return ErrUserNotFound
}

// get returns the stored record for assertions.
func (s *memStore) get(t *testing.T, email string) *models.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		t.Fatalf("user %s not in store", email)
	}
	return user
}

func applyUserFields(user *models.User, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "is_verified":
			user.IsVerified = value.(bool)
		case "verification_token":
			user.VerificationToken = asStringPtr(value)
		case "failed_login_attempts":
			user.FailedLoginAttempts = value.(int)
		case "last_login_at":
			t := value.(time.Time)
			user.LastLoginAt = &t
		case "is_locked":
			user.IsLocked = value.(bool)
		case "lock_until":
			if value == nil {
				user.LockUntil = nil
			} else {
				t := value.(time.Time)
				user.LockUntil = &t
			}
		case "step_up_token":
			user.StepUpToken = asStringPtr(value)
		case "password_hash":
			user.PasswordHash = value.(string)
		}
	}
}

func asStringPtr(value any) *string {
	if value == nil {
		return nil
	}
	s := value.(string)
	return &s
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // codes in send order
	fail bool
}

func (m *fakeMailer) SendOTP(_ context.Context, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, code)
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no codes were mailed")
	}
	return m.sent[len(m.sent)-1]
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID uuid.UUID, email string, role models.Role) (string, error) {
	return fmt.Sprintf("token:%s:%s", email, role), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*AuthService, *memStore, *fakeMailer, *testClock) {
	t.Helper()
	store := newMemStore()
	mailer := &fakeMailer{}
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(store, mailer, fakeIssuer{}, WithClock(clock.Now))
	return svc, store, mailer, clock
}

func dateOf(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func registerVerified(t *testing.T, svc *AuthService, store *memStore, mailer *fakeMailer, email, password string, dob *time.Time) *models.User {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Name:        "Test User",
		Email:       email,
		Password:    password,
		DateOfBirth: dob,
		Role:        models.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Verify(ctx, email, mailer.lastCode(t)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	return store.get(t, email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleCustomer}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}

	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterAbortsWhenMailFails(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	mailer.fail = true

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleCustomer,
	})
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.users) != 0 {
		t.Fatal("account must not be created when the verification email fails")
	}
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	stored := store.get(t, "a@x.com")
	if stored.IsVerified {
		t.Fatal("new accounts must start unverified")
	}
	if stored.VerificationToken == nil {
		t.Fatal("verification token must be set on registration")
	}
	if *stored.VerificationToken != mailer.lastCode(t) {
		t.Fatal("stored token must match the mailed code")
	}
	if len(*stored.VerificationToken) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", *stored.VerificationToken)
	}
	if stored.FailedLoginAttempts != 0 || stored.IsLocked {
		t.Fatal("new accounts must start with zeroed lock state")
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
	if stored.PasswordHash == "pw123456" || !utils.CheckPassword(stored.PasswordHash, "pw123456") {
		t.Fatal("password must be stored as a verifiable hash")
	}
}

func TestVerifyIsNotRepeatable(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleCustomer,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	code := mailer.lastCode(t)

	token, _, err := svc.Verify(ctx, "a@x.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if token == "" {
		t.Fatal("verify must issue a session token")
	}

	stored := store.get(t, "a@x.com")
	if !stored.IsVerified || stored.VerificationToken != nil {
		t.Fatal("verify must flip verified and clear the token")
	}

	// The consumed code must not work a second time.
	if _, _, err := svc.Verify(ctx, "a@x.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on replay, got %v", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleCustomer,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Issued codes never start with a zero, so this can never collide.
	if _, _, err := svc.Verify(ctx, "a@x.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.Login(context.Background(), "ghost@x.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnverified(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "A", Email: "a@x.com", Password: "pw123456", Role: models.RoleCustomer,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "a@x.com", "pw123456"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestLockoutThreshold(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", dateOf(2000, time.January, 1))

	// Four wrong passwords reject plainly and leave the account unlocked.
	for i := 1; i <= 4; i++ {
		_, err := svc.Login(ctx, "a@x.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
		stored := store.get(t, "a@x.com")
		if stored.FailedLoginAttempts != i {
			t.Fatalf("attempt %d: counter = %d", i, stored.FailedLoginAttempts)
		}
		if stored.IsLocked {
			t.Fatalf("attempt %d: account must not be locked", i)
		}
	}

	// The fifth wrong password demands step-up, without locking.
	_, err := svc.Login(ctx, "a@x.com", "wrong")
	var stepUp *StepUpRequiredError
	if !errors.As(err, &stepUp) {
		t.Fatalf("expected StepUpRequiredError, got %v", err)
	}
	if stepUp.Email != "a@x.com" {
		t.Fatalf("step-up must carry the email, got %q", stepUp.Email)
	}

	stored := store.get(t, "a@x.com")
	if stored.FailedLoginAttempts != 5 {
		t.Fatalf("counter must stay at 5, got %d", stored.FailedLoginAttempts)
	}
	if stored.IsLocked {
		t.Fatal("reaching the threshold must not lock the account")
	}
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	svc, store, mailer, clock := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", dateOf(2000, time.January, 1))

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}

	result, err := svc.Login(ctx, "a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login must issue a token")
	}

	stored := store.get(t, "a@x.com")
	if stored.FailedLoginAttempts != 0 {
		t.Fatalf("counter must reset to 0, got %d", stored.FailedLoginAttempts)
	}
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(clock.Now()) {
		t.Fatal("last login timestamp must be recorded")
	}
}

func TestBirthdayMismatchLocksImmediately(t *testing.T) {
	svc, store, mailer, clock := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", dateOf(2000, time.January, 1))

	// One wrong answer locks, regardless of the prior failure count.
	err := svc.StepUpBirthday(ctx, "a@x.com", time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC))
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}
	if want := clock.Now().Add(time.Minute); !locked.Until.Equal(want) {
		t.Fatalf("lock until = %v, want %v", locked.Until, want)
	}

	stored := store.get(t, "a@x.com")
	if !stored.IsLocked || stored.LockUntil == nil {
		t.Fatal("lock fields must be persisted")
	}

	// Even the correct password is rejected inside the window.
	if _, err := svc.Login(ctx, "a@x.com", "pw123456"); !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError during lock window, got %v", err)
	}

	// After the window passes the correct password works again.
	clock.Advance(61 * time.Second)
	if _, err := svc.Login(ctx, "a@x.com", "pw123456"); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
}

func TestStepUpBirthdayUnknownAccountLocks(t *testing.T) {
	svc, _, _, clock := newTestService(t)

	err := svc.StepUpBirthday(context.Background(), "ghost@x.com", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC))
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}
	if want := clock.Now().Add(time.Minute); !locked.Until.Equal(want) {
		t.Fatalf("lock until = %v, want %v", locked.Until, want)
	}
}

func TestStepUpCycleClearsState(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", dateOf(2000, time.January, 1))

	for i := 0; i < 5; i++ {
		svc.Login(ctx, "a@x.com", "wrong")
	}

	if err := svc.StepUpBirthday(ctx, "a@x.com", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("birthday challenge: %v", err)
	}

	stored := store.get(t, "a@x.com")
	if stored.StepUpToken == nil {
		t.Fatal("a passed birthday challenge must store a step-up token")
	}
	if *stored.StepUpToken != mailer.lastCode(t) {
		t.Fatal("stored step-up token must match the mailed code")
	}

	result, err := svc.StepUpOTP(ctx, "a@x.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("step-up otp: %v", err)
	}
	if result.Token == "" {
		t.Fatal("step-up completion must issue a session token")
	}

	stored = store.get(t, "a@x.com")
	if stored.FailedLoginAttempts != 0 || stored.IsLocked || stored.LockUntil != nil || stored.StepUpToken != nil {
		t.Fatal("step-up completion must clear the counter, lock, and token")
	}
	if stored.LastLoginAt != nil {
		t.Fatal("step-up completion must not touch last login")
	}
}

func TestStepUpOTPMismatch(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", dateOf(2000, time.January, 1))

	if err := svc.StepUpBirthday(ctx, "a@x.com", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("birthday challenge: %v", err)
	}

	if _, err := svc.StepUpOTP(ctx, "a@x.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// A wrong OTP neither locks nor counts.
	stored := store.get(t, "a@x.com")
	if stored.IsLocked {
		t.Fatal("wrong OTP must not lock the account")
	}
	if stored.StepUpToken == nil {
		t.Fatal("wrong OTP must not clear the pending token")
	}
}

func TestLegacyAccountsBypassLockout(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, store, mailer, "legacy@x.com", "pw123456", nil)

	for i := 0; i < 10; i++ {
		if _, err := svc.Login(ctx, "legacy@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored := store.get(t, "legacy@x.com")
	if stored.FailedLoginAttempts != 0 || stored.IsLocked {
		t.Fatal("legacy accounts must never accumulate lock state")
	}

	if _, err := svc.Login(ctx, "legacy@x.com", "pw123456"); err != nil {
		t.Fatalf("legacy login: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, store, mailer, "a@x.com", "pw123456", nil)

	if err := svc.ChangePassword(ctx, user.ID, "nope", "newpw12345"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "pw123456", "newpw12345"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(ctx, "a@x.com", "pw123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password must stop working")
	}
	if _, err := svc.Login(ctx, "a@x.com", "newpw12345"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestFullStepUpScenario(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name:        "A",
		Email:       "a@x.com",
		Password:    "pw123456",
		DateOfBirth: dateOf(2000, time.January, 1),
		Role:        models.RoleCustomer,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Verify(ctx, "a@x.com", mailer.lastCode(t)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	var stepUp *StepUpRequiredError
	for i := 1; i <= 5; i++ {
		_, err := svc.Login(ctx, "a@x.com", "wrong")
		if i < 5 {
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
			}
		} else if !errors.As(err, &stepUp) {
			t.Fatalf("attempt 5: expected StepUpRequiredError, got %v", err)
		}
	}
	if stepUp.Email != "a@x.com" {
		t.Fatalf("step-up email = %q", stepUp.Email)
	}

	if err := svc.StepUpBirthday(ctx, "a@x.com", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("birthday challenge: %v", err)
	}

	result, err := svc.StepUpOTP(ctx, "a@x.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("step-up otp: %v", err)
	}
	if result.Token == "" || result.User.Email != "a@x.com" {
		t.Fatalf("unexpected step-up result: token=%q user=%v", result.Token, result.User)
	}

	stored := store.get(t, "a@x.com")
	if stored.FailedLoginAttempts != 0 || stored.IsLocked || stored.StepUpToken != nil {
		t.Fatal("completed cycle must leave the account clean")
	}
}

func TestGenerateOTPRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateOTP()
		if err != nil {
			t.Fatalf("generateOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("code %q outside [100000, 999999]", code)
		}
	}
}
