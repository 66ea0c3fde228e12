package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/repository"
)

// WhitelistChecker answers fail-closed whitelist checks and forgets cached
// answers after admin changes.
type WhitelistChecker interface {
	IsWhitelisted(ctx context.Context, email string) bool
	Invalidate(ctx context.Context, email string)
}

// WhitelistHandler serves the public whitelist check and the admin CRUD.
type WhitelistHandler struct {
	Repo    *repository.WhitelistRepo
	Checker WhitelistChecker
	Log     *zap.Logger
}

func NewWhitelistHandler(repo *repository.WhitelistRepo, checker WhitelistChecker, log *zap.Logger) *WhitelistHandler {
	return &WhitelistHandler{Repo: repo, Checker: checker, Log: log.Named("whitelist")}
}

type emailBody struct {
	Email string `json:"email"`
}

func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// Check handles POST /v1/whitelist/check.  Lookup failures answer
// unauthorized.
func (h *WhitelistHandler) Check(c echo.Context) error {
	var body emailBody
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"authorized": false, "error": "invalid email"})
	}
	ok := h.Checker.IsWhitelisted(c.Request().Context(), body.Email)
	msg := "access denied"
	if ok {
		msg = "access granted"
	}
	return c.JSON(http.StatusOK, echo.Map{"authorized": ok, "message": msg})
}

// List handles GET /v1/admin/whitelist.  A storage failure returns an
// empty list marked with source "fallback".
func (h *WhitelistHandler) List(c echo.Context) error {
	entries, err := h.Repo.List(c.Request().Context())
	if err != nil {
		h.Log.Warn("list whitelist failed", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"success": true, "emails": []any{}, "source": "fallback"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "emails": entries, "source": "database"})
}

// Add handles POST /v1/admin/whitelist.
func (h *WhitelistHandler) Add(c echo.Context) error {
	var body emailBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request body"})
	}
	email := repository.NormalizeEmail(body.Email)
	if !validEmail(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid email"})
	}
	ctx := c.Request().Context()
	entry, err := h.Repo.Add(ctx, email)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "email already whitelisted"})
	}
	if err != nil {
		h.Log.Error("add whitelist email failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "could not add email"})
	}
	h.Checker.Invalidate(ctx, email)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "email": entry, "message": "email added"})
}

// SetActive handles PUT /v1/admin/whitelist/:id with body {"active": bool}.
func (h *WhitelistHandler) SetActive(c echo.Context) error {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "active is required"})
	}
	ctx := c.Request().Context()
	entry, err := h.Repo.SetActive(ctx, c.Param("id"), *body.Active)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "email not found"})
	}
	if err != nil {
		h.Log.Error("update whitelist email failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "could not update email"})
	}
	h.Checker.Invalidate(ctx, entry.Email)
	msg := "email deactivated"
	if entry.Active {
		msg = "email activated"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "email": entry, "message": msg})
}

// Delete handles DELETE /v1/admin/whitelist/:id.
func (h *WhitelistHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	email, err := h.Repo.Delete(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "email not found"})
	}
	if err != nil {
		h.Log.Error("delete whitelist email failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "could not delete email"})
	}
	h.Checker.Invalidate(ctx, email)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "email deleted"})
}
