package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"

	"github.com/expenso-app/expenso/store"
)

type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 128)),
	)
}

// RegisterUserHandler persists a new user inside a transaction. The
// password is hashed before anything touches the database, and the
// phone number is normalized to E.164 when it parses.
type RegisterUserHandler struct {
	Repo       store.RepositoryManager
	BcryptCost int
	Logger     Logger
}

func NewRegisterUserHandler(repo store.RepositoryManager, cost int) *RegisterUserHandler {
	return &RegisterUserHandler{
		Repo:       repo,
		BcryptCost: cost,
		Logger:     defLogger{},
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*store.User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*store.User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	user := &store.User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password, h.BcryptCost)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Name = event.Name
		user.Email = event.Email
		user.Phone = normalizePhone(event.Phone)

		if user, err = h.Repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if store.IsConflict(err) {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "email already registered")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user").
				WithTextCode("STORE_FAILURE")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed").
			WithTextCode("STORE_FAILURE")
	}

	return user, nil
}

// normalizePhone formats the number as E.164 when it parses, otherwise
// keeps the raw input. Region defaults to US for bare national numbers.
func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return phone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
