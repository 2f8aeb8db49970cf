package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/middleware"
	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/utils"
	"go.uber.org/zap"
)

const invalidCodeMessage = "Invalid or expired code"

// AuthController serves registration, password login and phone OTP login.
type AuthController struct {
	svc    *auth.Service
	tokens *auth.TokenIssuer
	log    *zap.Logger
	// returnOTP echoes issued codes to the client; development only.
	returnOTP bool
}

func NewAuthController(svc *auth.Service, tokens *auth.TokenIssuer, log *zap.Logger, returnOTP bool) *AuthController {
	return &AuthController{svc: svc, tokens: tokens, log: log, returnOTP: returnOTP}
}

// Register returns a registration handler for role.
func (ac *AuthController) Register(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input auth.Registration
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Cannot parse request body")
		}
		input.Role = role

		account, err := ac.svc.Register(c.UserContext(), input)
		if err != nil {
			return ac.fail(c, "register", err)
		}
		return c.Status(fiber.StatusCreated).JSON(account)
	}
}

// Login returns a password login handler restricted to scope.
func (ac *AuthController) Login(scope auth.Scope) fiber.Handler {
	type LoginInput struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}

	return func(c *fiber.Ctx) error {
		input := new(LoginInput)
		if err := c.BodyParser(input); err != nil {
			return badRequest(c, "Cannot parse request body")
		}

		account, err := ac.svc.Authenticate(c.UserContext(), input.Username, input.Password, scope)
		if err != nil {
			return ac.fail(c, "login", err)
		}
		return ac.establish(c, account)
	}
}

// RequestOTP issues a login code for the submitted phone number.
func (ac *AuthController) RequestOTP(c *fiber.Ctx) error {
	var input struct {
		Phone string `json:"phone" form:"phone"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Cannot parse request body")
	}

	challenge, err := ac.svc.IssueOTP(c.UserContext(), middleware.SessionID(c), input.Phone)
	if err != nil {
		return ac.fail(c, "request otp", err)
	}

	resp := fiber.Map{
		"message":    "Verification code sent",
		"expires_at": challenge.ExpiresAt.Format(time.RFC3339),
	}
	if ac.returnOTP {
		resp["code"] = challenge.Code
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// VerifyOTP completes the pending phone login for this browser session.
func (ac *AuthController) VerifyOTP(c *fiber.Ctx) error {
	var input struct {
		Code string `json:"code" form:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Cannot parse request body")
	}

	account, err := ac.svc.VerifyOTP(c.UserContext(), middleware.SessionID(c), input.Code)
	if errors.Is(err, auth.ErrUnknownAccount) {
		ac.log.Debug("verify otp rejected", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{Error: invalidCodeMessage})
	}
	if err != nil {
		return ac.fail(c, "verify otp", err)
	}
	if !account.IsActive {
		return ac.fail(c, "verify otp", auth.ErrAccountInactive)
	}
	return ac.establish(c, account)
}

// GetUserProfile returns the current user's account and profile
func (ac *AuthController) GetUserProfile(c *fiber.Ctx) error {
	account, err := ac.svc.Account(c.UserContext(), currentUserID(c))
	if err != nil {
		return ac.fail(c, "me", err)
	}
	return c.JSON(account)
}

// RefreshToken generates a new token pair using a refresh token
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Cannot parse request body")
	}

	accountID, err := ac.tokens.ParseRefresh(input.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{Error: "Invalid refresh token"})
	}
	account, err := ac.svc.Account(c.UserContext(), accountID)
	if errors.Is(err, auth.ErrUnknownAccount) {
		return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{Error: "Invalid refresh token"})
	}
	if err != nil {
		return ac.fail(c, "refresh", err)
	}
	if !account.IsActive {
		return ac.fail(c, "refresh", auth.ErrAccountInactive)
	}
	return ac.establish(c, account)
}

// Logout drops any pending phone login for this browser session. Issued
// tokens stay valid until they expire.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	if err := ac.svc.CancelOTP(c.UserContext(), middleware.SessionID(c)); err != nil {
		ac.log.Warn("logout: cancel pending otp", zap.Error(err))
	}
	return c.JSON(fiber.Map{
		"message": "You have been logged out successfully!",
	})
}

// ChangePassword updates the current user's password.
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Cannot parse request body")
	}

	if err := ac.svc.ChangePassword(c.UserContext(), currentUserID(c), input.CurrentPassword, input.NewPassword); err != nil {
		return ac.fail(c, "change password", err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// SetAccountActive lets staff activate or deactivate an account.
func (ac *AuthController) SetAccountActive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "Invalid account ID")
	}
	var input struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil || input.IsActive == nil {
		return badRequest(c, "is_active is required")
	}

	err = ac.svc.SetActive(c.UserContext(), uint(id), *input.IsActive)
	if errors.Is(err, auth.ErrUnknownAccount) {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{Error: "Account not found"})
	}
	if err != nil {
		return ac.fail(c, "set active", err)
	}
	return c.JSON(fiber.Map{"id": id, "is_active": *input.IsActive})
}

func (ac *AuthController) establish(c *fiber.Ctx, account *models.Account) error {
	pair, err := ac.tokens.Issue(account)
	if err != nil {
		return ac.fail(c, "issue tokens", err)
	}
	return c.JSON(fiber.Map{
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
		"user": fiber.Map{
			"id":       account.ID,
			"username": account.Username,
			"email":    account.Email,
			"role":     account.Role,
			"is_staff": account.IsStaff,
		},
	})
}

// fail maps an auth outcome to a generic response. Storage errors are only logged.
func (ac *AuthController) fail(c *fiber.Ctx, op string, err error) error {
	status, message := fiber.StatusInternalServerError, "Something went wrong, please try again"

	switch {
	case errors.Is(err, auth.ErrDuplicateIdentity):
		status, message = fiber.StatusConflict, "An account with this username or email already exists"
	case errors.Is(err, auth.ErrInvalidInput):
		status, message = fiber.StatusBadRequest, "Invalid input"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNotAProvider),
		errors.Is(err, auth.ErrInsufficientPrivilege):
		status, message = fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrAccountInactive):
		status, message = fiber.StatusForbidden, "Account is inactive"
	case errors.Is(err, auth.ErrUnknownPhone):
		status, message = fiber.StatusBadRequest, "Invalid input"
	case errors.Is(err, auth.ErrNoPendingChallenge),
		errors.Is(err, auth.ErrInvalidOrExpiredOtp):
		status, message = fiber.StatusUnauthorized, invalidCodeMessage
	case errors.Is(err, auth.ErrUnknownAccount):
		status, message = fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, auth.ErrTooManyAttempts):
		status, message = fiber.StatusTooManyRequests, "Too many attempts, request a new code"
	}

	if status == fiber.StatusInternalServerError {
		ac.log.Error(op+" failed", zap.Error(err))
	} else {
		ac.log.Debug(op+" rejected", zap.Error(err))
	}
	return c.Status(status).JSON(utils.ErrorResponse{Error: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{Error: message})
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
