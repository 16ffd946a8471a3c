package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/FitLifeApp/FitLife/app/repository"
	"github.com/FitLifeApp/FitLife/internal/pkg/billing"
	"github.com/FitLifeApp/FitLife/internal/pkg/database"
	"github.com/FitLifeApp/FitLife/internal/pkg/env"
	"github.com/FitLifeApp/FitLife/internal/pkg/token"
	"github.com/FitLifeApp/FitLife/internal/pkg/usercontext"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new member account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email))); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Email already registered"})
	}

	user, err := models.CreateUser(req.Name, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repo.Create(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not create user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// HandleLogin verifies credentials and issues a bearer token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Login failed"})
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
	}
	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Account is not active"})
	}

	// Refresh last-login timestamp best-effort.
	now := time.Now()
	user.LastLoginAt = &now
	_ = repo.Update(user)

	expireHours, _ := strconv.Atoi(env.GetEnv("JWT_EXPIRE_HOURS", "24"))
	jwt, err := token.GenerateToken(user.ID, user.UUID, user.Email, env.GetEnv("JWT_SECRET", ""), expireHours)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not issue token"})
	}

	return c.JSON(fiber.Map{"token": jwt, "user": user})
}

// HandleGetMe returns the authenticated member profile with membership state.
func HandleGetMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
	}

	resp := fiber.Map{"user": user}
	billingRepo := billing.NewRepository(database.GetDB())
	if account, err := billingRepo.GetAccountByUserID(user.ID); err == nil {
		resp["membership"] = fiber.Map{
			"plan_type": account.PlanType,
			"status":    account.Status,
			"trial":     account.Trial,
		}
	}

	return c.JSON(resp)
}
