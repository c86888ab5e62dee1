package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-marketplace-auth/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes are the paths the controller mounts.
type AuthControllerRoutes struct {
	Register       string
	Login          string
	Me             string
	ChangePassword string
	ResetPassword  string
}

// AuthController is the JSON boundary over Auther. Returned user objects are
// always sanitized; degraded results carry "temporary": true so operators
// and clients can tell a fallback-cache account apart.
type AuthController struct {
	Logger Logger
	Auther *Auther
	Config Config
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewAuthController(auther *Auther, cfg Config, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auther: auther,
		Config: cfg,
		Routes: &AuthControllerRoutes{
			Register:       "/auth/register",
			Login:          "/auth/login",
			Me:             "/auth/me",
			ChangePassword: "/auth/change-password",
			ResetPassword:  "/auth/reset-password/:userId",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the credential endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	authenticated := controller.Protected()
	elevated := controller.ProtectedWithRoles(RoleAdmin, RoleOwner)

	app.Get(controller.Routes.Me, authenticated(controller.Me)).
		SetName("auth.me")

	app.Put(controller.Routes.ChangePassword, authenticated(controller.ChangePassword)).
		SetName("auth.change-password")

	app.Put(controller.Routes.ResetPassword, elevated(controller.ResetPassword)).
		SetName("auth.reset-password")
}

// Protected returns the bearer-token gate for routes that only require a
// valid session.
func (a *AuthController) Protected() router.MiddlewareFunc {
	return a.guard(nil)
}

// ProtectedWithRoles additionally requires one of the given roles.
func (a *AuthController) ProtectedWithRoles(roles ...UserRole) router.MiddlewareFunc {
	return a.guard(roles)
}

func (a *AuthController) guard(roles []UserRole) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenValidator: GuardValidator(a.Auther.TokenService()),
		ContextKey:     a.Config.GetContextKey(),
		AuthScheme:     a.Config.GetAuthScheme(),
		RequiredRoles:  roles,
		ErrorHandler: func(ctx router.Context, err error) error {
			if jwtware.IsRoleError(err) {
				return a.renderError(ctx, ErrForbidden)
			}
			if IsTokenExpiredError(err) {
				return a.renderError(ctx, ErrTokenExpired)
			}
			return a.renderError(ctx, ErrTokenMalformed)
		},
	})
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := RegisterPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.renderError(ctx, NewValidationError(err))
	}

	result, err := a.Auther.Register(ctx.Context(), payload)
	if err != nil {
		return a.renderError(ctx, err)
	}

	if result.Degraded {
		a.Logger.Warn("registration for %s served by fallback cache", result.User.Email)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := LoginRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.renderError(ctx, ErrInvalidCredentials)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}

	if result.Degraded {
		a.Logger.Warn("login for %s served by fallback cache", result.User.Email)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *AuthController) Me(ctx router.Context) error {
	id, err := a.requesterID(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	user, err := a.Auther.CurrentUser(ctx.Context(), id)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (a *AuthController) ChangePassword(ctx router.Context) error {
	id, err := a.requesterID(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := ChangePasswordPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.renderError(ctx, NewValidationError(err))
	}

	user, err := a.Auther.ChangePassword(ctx.Context(), id, payload)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	claims, err := ClaimsFromContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.renderError(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		return a.renderError(ctx, ErrUserNotFound)
	}

	payload := ResetPasswordPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.renderError(ctx, NewValidationError(err))
	}

	user, err := a.Auther.ResetPassword(ctx.Context(), claims.Role(), targetID, payload)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (a *AuthController) requesterID(ctx router.Context) (uuid.UUID, error) {
	claims, err := ClaimsFromContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return id, nil
}

func (a *AuthController) renderError(ctx router.Context, err error) error {
	status := ErrorStatus(err)

	body := map[string]any{"message": err.Error()}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		body["message"] = richErr.Message
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
		if fields, ok := richErr.Metadata["fields"]; ok {
			body["fields"] = fields
		}
	}

	if status >= 500 {
		a.Logger.Error("auth request failed with status %d: %v", status, err)
	}

	return ctx.JSON(status, map[string]any{"error": body})
}

// ClaimsFromContext recovers the validated claims the guard stored in the
// router locals.
func ClaimsFromContext(ctx router.Context, key string) (AuthClaims, error) {
	stored := ctx.Locals(key)
	if stored == nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := stored.(AuthClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

type guardValidator struct {
	tokens TokenService
}

// GuardValidator adapts the TokenService for the jwtware middleware.
func GuardValidator(tokens TokenService) jwtware.TokenValidator {
	return guardValidator{tokens: tokens}
}

func (g guardValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := g.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
