package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	svc *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

// RegisterCustomer creates a new customer account.
func (h *AuthHandler) RegisterCustomer(c *fiber.Ctx) error {
	return h.register(c, models.RoleCustomer)
}

// RegisterAdmin creates a new admin account.
func (h *AuthHandler) RegisterAdmin(c *fiber.Ctx) error {
	return h.register(c, models.RoleAdmin)
}

func (h *AuthHandler) register(c *fiber.Ctx, role models.Role) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	input := services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     role,
	}

	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
		}
		input.DateOfBirth = &dob
	}

	user, err := h.svc.Register(c.UserContext(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			return fiber.NewError(fiber.StatusConflict, "email already registered")
		case errors.Is(err, services.ErrEmailDelivery):
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      user.ID,
		"email":   user.Email,
		"message": "registration successful, check your email for the verification code",
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify completes registration with the emailed code.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, _, err := h.svc.Verify(c.UserContext(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid verification code")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "email verified",
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		var stepUp *services.StepUpRequiredError
		var locked *services.AccountLockedError
		switch {
		case errors.Is(err, services.ErrEmailNotVerified):
			return fiber.NewError(fiber.StatusUnauthorized, "email not verified")
		case errors.Is(err, services.ErrInvalidCredentials):
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		case errors.As(err, &stepUp):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"stepUp":  true,
				"message": "additional verification required, confirm your date of birth",
				"email":   stepUp.Email,
			})
		case errors.As(err, &locked):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "account locked until " + locked.Until.Format(time.RFC1123),
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "login successful",
		"token":   result.Token,
		"user": fiber.Map{
			"id":    result.User.ID,
			"name":  result.User.Name,
			"email": result.User.Email,
			"role":  result.User.Role,
		},
	})
}

type stepUpBirthdayRequest struct {
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

// StepUpBirthday answers the birthday challenge of the step-up flow.
func (h *AuthHandler) StepUpBirthday(c *fiber.Ctx) error {
	var req stepUpBirthdayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	birthday, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
	}

	if err := h.svc.StepUpBirthday(c.UserContext(), req.Email, birthday); err != nil {
		var locked *services.AccountLockedError
		if errors.As(err, &locked) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "account locked until " + locked.Until.Format(time.RFC1123),
			})
		}
		if errors.Is(err, services.ErrEmailDelivery) {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification code sent, check your email",
		"email":   req.Email,
	})
}

type stepUpOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// StepUpOTP completes the step-up flow with the emailed code.
func (h *AuthHandler) StepUpOTP(c *fiber.Ctx) error {
	var req stepUpOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.StepUpOTP(c.UserContext(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid verification code")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification successful",
		"token":   result.Token,
		"user": fiber.Map{
			"id":    result.User.ID,
			"email": result.User.Email,
			"role":  result.User.Role,
		},
	})
}
