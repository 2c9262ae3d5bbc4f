// Package expense exposes the expense CRUD API. Every route sits
// behind the API guard, so handlers trust the user ID in the request
// locals and scope every query by it.
package expense

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/expenso-app/expenso/auth"
	"github.com/expenso-app/expenso/middleware/apiguard"
	"github.com/expenso-app/expenso/store"
)

// Controller handles the expense endpoints.
type Controller struct {
	Logger   auth.Logger
	Expenses store.Expenses
}

func NewController(expenses store.Expenses) *Controller {
	return &Controller{
		Logger:   auth.DefaultLogger(),
		Expenses: expenses,
	}
}

func (e *Controller) WithLogger(logger auth.Logger) *Controller {
	if logger != nil {
		e.Logger = logger
	}
	return e
}

// RegisterRoutes mounts the expense endpoints under the given router.
func (e *Controller) RegisterRoutes(app fiber.Router) {
	app.Get("/expenses", e.List).Name("expenses.list")
	app.Post("/expenses", e.Create).Name("expenses.create")
	app.Get("/expenses/:id", e.Show).Name("expenses.show")
	app.Put("/expenses/:id", e.Update).Name("expenses.update")
	app.Delete("/expenses/:id", e.Delete).Name("expenses.delete")
	app.Get("/categories", e.Categories).Name("expenses.categories")
}

// ExpensePayload is the request body for create and update.
type ExpensePayload struct {
	Category    string    `json:"category"`
	Cost        float64   `json:"cost"`
	Description string    `json:"description"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func (p ExpensePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Cost, validation.Required, validation.Min(0.01)),
		validation.Field(&p.Description, validation.Length(0, 500)),
		validation.Field(&p.Category, validation.By(validCategory)),
	)
}

func validCategory(value any) error {
	s, _ := value.(string)
	if s == "" || store.ValidCategory(s) {
		return nil
	}
	return errors.New("unknown expense category")
}

type listResponse struct {
	Success  bool             `json:"success"`
	Expenses []*store.Expense `json:"expenses"`
}

type recordResponse struct {
	Success bool           `json:"success"`
	Expense *store.Expense `json:"expense"`
}

func (e *Controller) List(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	filter := store.ExpenseFilter{UserID: userID}

	if category := c.Query("category"); category != "" {
		if !store.ValidCategory(category) {
			return fail(c, fiber.StatusBadRequest, "Unknown expense category")
		}
		filter.Category = category
	}

	if from, ok, err := queryTime(c, "from"); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid from date")
	} else if ok {
		filter.From = &from
	}

	if to, ok, err := queryTime(c, "to"); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid to date")
	} else if ok {
		filter.To = &to
	}

	records, err := e.Expenses.ListForUser(c.UserContext(), filter)
	if err != nil {
		e.Logger.Error("Expense list failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not list expenses")
	}

	return c.Status(fiber.StatusOK).JSON(listResponse{Success: true, Expenses: records})
}

func (e *Controller) Create(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	payload := new(ExpensePayload)
	if err := c.BodyParser(payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request payload")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	record := &store.Expense{
		UserID:      userID,
		Category:    payload.Category,
		Cost:        payload.Cost,
		Description: payload.Description,
		PurchasedAt: payload.PurchasedAt,
	}

	record, err = e.Expenses.Create(c.UserContext(), record)
	if err != nil {
		e.Logger.Error("Expense create failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not create expense")
	}

	return c.Status(fiber.StatusCreated).JSON(recordResponse{Success: true, Expense: record})
}

func (e *Controller) Show(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid expense id")
	}

	record, err := e.Expenses.GetForUser(c.UserContext(), userID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return fail(c, fiber.StatusNotFound, "Expense not found")
		}
		e.Logger.Error("Expense show failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not load expense")
	}

	return c.Status(fiber.StatusOK).JSON(recordResponse{Success: true, Expense: record})
}

func (e *Controller) Update(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid expense id")
	}

	payload := new(ExpensePayload)
	if err := c.BodyParser(payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request payload")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	record := &store.Expense{
		ID:          id,
		UserID:      userID,
		Category:    payload.Category,
		Cost:        payload.Cost,
		Description: payload.Description,
		PurchasedAt: payload.PurchasedAt,
	}

	record, err = e.Expenses.UpdateForUser(c.UserContext(), record)
	if err != nil {
		if store.IsNotFound(err) {
			return fail(c, fiber.StatusNotFound, "Expense not found")
		}
		e.Logger.Error("Expense update failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not update expense")
	}

	return c.Status(fiber.StatusOK).JSON(recordResponse{Success: true, Expense: record})
}

func (e *Controller) Delete(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid expense id")
	}

	if err := e.Expenses.DeleteForUser(c.UserContext(), userID, id); err != nil {
		if store.IsNotFound(err) {
			return fail(c, fiber.StatusNotFound, "Expense not found")
		}
		e.Logger.Error("Expense delete failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not delete expense")
	}

	return c.Status(fiber.StatusOK).JSON(auth.Response{Success: true, Message: "Expense deleted"})
}

func (e *Controller) Categories(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"categories": store.Categories,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(auth.Response{Success: false, Message: message})
}

func requireUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := apiguard.UserID(c)
	if raw == "" {
		return uuid.Nil, fail(c, fiber.StatusUnauthorized, "Unauthenticated")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fail(c, fiber.StatusUnauthorized, "Unauthenticated")
	}

	return id, nil
}

func queryTime(c *fiber.Ctx, key string) (time.Time, bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Bare dates are common in query strings.
		parsed, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, false, err
		}
	}

	return parsed, true, nil
}
