// Package api exposes the cash-nudge operations over HTTP.
package api

import (
	"errors"
	"time"

	"CashNudge/internal/dispatcher"
	"CashNudge/internal/ledger"
	"CashNudge/internal/logger"
	"CashNudge/internal/model"
	"CashNudge/internal/quickadd"
	"CashNudge/internal/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// UserHeader carries the authenticated caller; authentication happens
// upstream.
const UserHeader = "X-User-ID"

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Store      ledger.Store
	Summary    *reconcile.Service
	QuickAdd   *quickadd.Handler
	Dispatcher *dispatcher.Dispatcher
	Now        func() time.Time

	log zerolog.Logger
}

// NewHandler wires the handlers.
func NewHandler(store ledger.Store, summary *reconcile.Service, qa *quickadd.Handler, disp *dispatcher.Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Summary:    summary,
		QuickAdd:   qa,
		Dispatcher: disp,
		Now:        time.Now,
		log:        log,
	}
}

// NewApp builds a fiber app with every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "cashnudge",
		ErrorHandler: h.errorHandler,
	})
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(h.withLogger)
	app.Get("/api/health", HandleHealth)

	v1 := app.Group("/api/v1", requireUser)
	v1.Get("/summary", h.handleSummary)
	v1.Post("/expenses", h.handleQuickAdd)
	v1.Post("/acknowledge", h.handleAcknowledge)
	v1.Get("/notifications", h.handleListNotifications)
	v1.Post("/notifications/:id/read", h.handleMarkRead)
	v1.Post("/transactions", h.handleIngest)
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) withLogger(c *fiber.Ctx) error {
	log := h.log.With().Str("method", c.Method()).Str("path", c.Path()).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))
	return c.Next()
}

func requireUser(c *fiber.Ctx) error {
	id := c.Get(UserHeader)
	if id == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+UserHeader+" header")
	}
	c.Locals("user_id", id)
	log := logger.FromContext(c.UserContext()).With().Str("user_id", id).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))
	return c.Next()
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func (h *Handler) handleSummary(c *fiber.Ctx) error {
	days := c.QueryInt("lookback_days", 0)
	sum, err := h.Summary.Summary(c.UserContext(), userID(c), days)
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

type quickAddBody struct {
	Amount      decimal.Decimal `json:"amount"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Date        *time.Time      `json:"date"`
}

func (h *Handler) handleQuickAdd(c *fiber.Ctx) error {
	var body quickAddBody
	if err := c.BodyParser(&body); err != nil {
		return model.Validationf("invalid body: %v", err)
	}
	res, err := h.QuickAdd.QuickAdd(c.UserContext(), quickadd.Request{
		UserID:      userID(c),
		Amount:      body.Amount,
		Subcategory: body.Subcategory,
		Description: body.Description,
		Date:        body.Date,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) handleAcknowledge(c *fiber.Ctx) error {
	res, err := h.QuickAdd.Acknowledge(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) handleListNotifications(c *fiber.Ctx) error {
	page := model.Page{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	list, err := h.Dispatcher.List(c.UserContext(), h.Store, userID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (h *Handler) handleMarkRead(c *fiber.Ctx) error {
	if err := h.Dispatcher.MarkRead(c.UserContext(), h.Store, c.Params("id"), userID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type ingestBody struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   model.Direction `json:"direction"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
}

// handleIngest accepts an already-tagged transaction. The role is fixed
// here and the user joins the nightly roster.
func (h *Handler) handleIngest(c *fiber.Ctx) error {
	var body ingestBody
	if err := c.BodyParser(&body); err != nil {
		return model.Validationf("invalid body: %v", err)
	}
	if !body.Amount.IsPositive() {
		return model.Validationf("amount must be greater than zero")
	}
	if body.Direction == "" {
		body.Direction = model.DirectionDebit
	}
	if body.Direction != model.DirectionDebit && body.Direction != model.DirectionCredit {
		return model.Validationf("direction must be debit or credit")
	}
	now := h.Now()
	if body.Timestamp.IsZero() {
		body.Timestamp = now
	}
	if body.ID == "" {
		body.ID = uuid.New().String()
	}

	t := model.Transaction{
		ID:          body.ID,
		UserID:      userID(c),
		Amount:      body.Amount,
		Direction:   body.Direction,
		Category:    body.Category,
		Subcategory: body.Subcategory,
		Description: body.Description,
		Tags:        model.UniqueTags(body.Tags),
		Role:        model.ClassifyTags(body.Tags),
		Timestamp:   body.Timestamp,
		Source:      body.Source,
	}
	err := h.Store.WithTx(c.UserContext(), func(tx ledger.Tx) error {
		if err := tx.UpsertUser(c.UserContext(), t.UserID, now); err != nil {
			return err
		}
		return tx.InsertTransaction(c.UserContext(), t)
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": t.ID, "role": t.Role})
}

// errorHandler maps the error taxonomy to status codes.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, model.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrTransient):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
