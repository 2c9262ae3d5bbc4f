package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Response is the envelope every auth endpoint returns.
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Controller exposes the auth flows over HTTP: register, login,
// logout, and access token refresh.
type Controller struct {
	Debug    bool
	Logger   Logger
	Auther   *Authenticator
	Register *RegisterUserHandler
	Cookies  CookieWriter
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(auther *Authenticator, register *RegisterUserHandler, cookies CookieWriter, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:   defLogger{},
		Auther:   auther,
		Register: register,
		Cookies:  cookies,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the auth endpoints under the given router.
// Logout sits behind the access token guard, the other endpoints are
// open by nature.
func (a *Controller) RegisterRoutes(app fiber.Router, logoutGuard ...fiber.Handler) {
	app.Post("/register", a.RegisterPost).Name("auth.register")
	app.Post("/login", a.LoginPost).Name("auth.login")
	app.Post("/logout", append(logoutGuard, a.LogoutPost)...).Name("auth.logout")
	app.Post("/refresh", a.RefreshPost).Name("auth.refresh")
}

func (a *Controller) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegisterUserMessage)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Debug("Register bind error: %v", err)
		return respond(ctx, fiber.StatusBadRequest, "Invalid request payload")
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	if _, err := a.Register.Execute(ctx.UserContext(), *payload); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return respond(ctx, fiber.StatusBadRequest, "Invalid request payload")
		}
		// Conflicts and store failures alike collapse to a generic
		// answer so we do not leak which emails exist.
		a.Logger.Error("Register failed: %v", err)
		return respond(ctx, fiber.StatusInternalServerError, "Could not register user")
	}

	return respondSuccess(ctx, fiber.StatusCreated, "User registered")
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *Controller) LoginPost(ctx *fiber.Ctx) error {
	// A browser with a live session has nothing to gain from logging
	// in again.
	if raw := ctx.Cookies(SessionCookieName); raw != "" {
		if _, err := a.Auther.Tokens().Verify(SessionToken, raw); err == nil {
			return a.loginError(ctx, ErrAlreadyAuthenticated)
		}
	}

	payload := new(LoginRequest)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Debug("Login bind error: %v", err)
		return respond(ctx, fiber.StatusBadRequest, "Invalid request payload")
	}

	bundle, err := a.Auther.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.loginError(ctx, err)
	}

	a.Cookies.SetRefresh(ctx, bundle.RefreshToken)
	a.Cookies.SetSession(ctx, bundle.SessionToken)

	return ctx.Status(fiber.StatusOK).JSON(Response{
		Success:     true,
		Message:     "Logged in",
		AccessToken: bundle.AccessToken,
	})
}

func (a *Controller) LogoutPost(ctx *fiber.Ctx) error {
	// Stateless logout: drop the cookies and we are done. Succeeds
	// even when the caller was never logged in.
	a.Cookies.ClearAll(ctx)
	return respondSuccess(ctx, fiber.StatusOK, "Logged out")
}

func (a *Controller) RefreshPost(ctx *fiber.Ctx) error {
	raw := ctx.Cookies(RefreshCookieName)
	if raw == "" {
		return respond(ctx, fiber.StatusUnauthorized, "Unauthenticated")
	}

	access, err := a.Auther.Refresh(raw)
	if err != nil {
		if !IsTokenInvalid(err) {
			a.Logger.Error("Refresh failed: %v", err)
			return respond(ctx, fiber.StatusInternalServerError, "Could not refresh token")
		}
		// A rejected refresh token is dead weight, clear it so the
		// client stops sending it. A still valid session cookie is
		// left alone.
		a.Cookies.ClearRefresh(ctx)
		return respond(ctx, fiber.StatusUnauthorized, "Invalid or expired token")
	}

	return ctx.Status(fiber.StatusOK).JSON(Response{
		Success:     true,
		Message:     "Token refreshed",
		AccessToken: access,
	})
}

func (a *Controller) loginError(ctx *fiber.Ctx, err error) error {
	switch {
	case goerrors.Is(err, ErrAlreadyAuthenticated):
		return respond(ctx, fiber.StatusBadRequest, "Already authenticated")
	case goerrors.Is(err, ErrIdentityNotFound):
		return respond(ctx, fiber.StatusNotFound, "Invalid login attempt")
	case goerrors.Is(err, ErrWrongPassword):
		return respond(ctx, fiber.StatusUnauthorized, "Invalid login attempt")
	default:
		a.Logger.Error("Login failed: %v", err)
		return respond(ctx, fiber.StatusInternalServerError, "Could not process login")
	}
}

func respond(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(Response{Success: false, Message: message})
}

func respondSuccess(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(Response{Success: true, Message: message})
}
