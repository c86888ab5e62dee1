package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-marketplace-auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*auth.AuthController, *auth.Auther) {
	t.Helper()

	auther, _ := newHealthyAuther(t)
	controller := auth.NewAuthController(auther, testConfig{})

	return controller, auther
}

func registeredUser(t *testing.T, auther *auth.Auther) *auth.AuthResult {
	t.Helper()

	result, err := auther.Register(context.Background(), validRegisterPayload())
	require.NoError(t, err)

	return result
}

func claimsFor(t *testing.T, auther *auth.Auther, token string) auth.AuthClaims {
	t.Helper()

	claims, err := auther.TokenService().Validate(token)
	require.NoError(t, err)

	return claims
}

func TestRegisterPost(t *testing.T) {
	t.Run("creates account with 201", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.RegisterPayload)
			*payload = validRegisterPayload()
		}).Return(nil)

		var result *auth.AuthResult
		ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
			result = args.Get(1).(*auth.AuthResult)
		}).Return(nil)

		err := controller.RegisterPost(ctx)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "ada@example.com", result.User.Email)
		ctx.AssertExpectations(t)
	})

	t.Run("invalid payload returns 400 with field list", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.RegisterPayload)
			*payload = auth.RegisterPayload{Email: "not-an-email"}
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.RegisterPost(ctx)

		require.NoError(t, err)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeValidation, errBody["code"])

		fields := errBody["fields"].(map[string]any)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})

	t.Run("duplicate identity returns 409", func(t *testing.T) {
		controller, auther := newTestController(t)
		registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.RegisterPayload)
			*payload = validRegisterPayload()
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.RegisterPost(ctx)

		require.NoError(t, err)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeDuplicateIdentity, errBody["code"])
	})
}

func TestLoginPost(t *testing.T) {
	t.Run("valid credentials return 200 with token", func(t *testing.T) {
		controller, auther := newTestController(t)
		registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Email = "ada@example.com"
			payload.Password = "Sup3rSecret!"
		}).Return(nil)

		var result *auth.AuthResult
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			result = args.Get(1).(*auth.AuthResult)
		}).Return(nil)

		err := controller.LoginPost(ctx)

		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Empty(t, result.User.PasswordHash)
	})

	t.Run("wrong password returns uniform 401", func(t *testing.T) {
		controller, auther := newTestController(t)
		registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Email = "ada@example.com"
			payload.Password = "WrongPass1!"
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.LoginPost(ctx)

		require.NoError(t, err)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeInvalidCredentials, errBody["code"])
	})

	t.Run("unparseable body returns same 401", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(assert.AnError)

		var body map[string]any
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.LoginPost(ctx)

		require.NoError(t, err)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeInvalidCredentials, errBody["code"])
	})
}

func TestMe(t *testing.T) {
	t.Run("returns the fresh sanitized record", func(t *testing.T) {
		controller, auther := newTestController(t)
		account := registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = claimsFor(t, auther, account.Token)

		var body map[string]any
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.Me(ctx)

		require.NoError(t, err)
		user := body["user"].(*auth.User)
		assert.Equal(t, account.User.ID, user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("missing claims return 401", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

		err := controller.Me(ctx)

		require.NoError(t, err)
		ctx.AssertExpectations(t)
	})
}

func TestChangePasswordHandler(t *testing.T) {
	t.Run("rotates the password", func(t *testing.T) {
		controller, auther := newTestController(t)
		account := registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = claimsFor(t, auther, account.Token)
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.ChangePasswordPayload)
			payload.CurrentPassword = "Sup3rSecret!"
			payload.NewPassword = "Rotated1!pass"
		}).Return(nil)
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil)

		err := controller.ChangePassword(ctx)
		require.NoError(t, err)

		_, err = auther.Login(context.Background(), "ada@example.com", "Rotated1!pass")
		assert.NoError(t, err)
	})

	t.Run("wrong current password returns 401", func(t *testing.T) {
		controller, auther := newTestController(t)
		account := registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = claimsFor(t, auther, account.Token)
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.ChangePasswordPayload)
			payload.CurrentPassword = "WrongPass1!"
			payload.NewPassword = "Rotated1!pass"
		}).Return(nil)
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

		err := controller.ChangePassword(ctx)
		require.NoError(t, err)
		ctx.AssertExpectations(t)
	})
}

func TestResetPasswordHandler(t *testing.T) {
	adminClaims := &auth.JWTClaims{UID: uuid.NewString(), UserRole: auth.RoleAdmin}

	t.Run("admin resets a target account", func(t *testing.T) {
		controller, auther := newTestController(t)
		account := registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = adminClaims
		ctx.ParamsM["userId"] = account.User.ID.String()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.ResetPasswordPayload)
			payload.NewPassword = "Rotated1!pass"
		}).Return(nil)
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil)

		err := controller.ResetPassword(ctx)
		require.NoError(t, err)

		_, err = auther.Login(context.Background(), "ada@example.com", "Rotated1!pass")
		assert.NoError(t, err)
	})

	t.Run("regular user gets 403", func(t *testing.T) {
		controller, auther := newTestController(t)
		account := registeredUser(t, auther)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = &auth.JWTClaims{UID: uuid.NewString(), UserRole: auth.RoleUser}
		ctx.ParamsM["userId"] = account.User.ID.String()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.ResetPasswordPayload)
			payload.NewPassword = "Rotated1!pass"
		}).Return(nil)
		ctx.On("JSON", router.StatusForbidden, mock.Anything).Return(nil)

		err := controller.ResetPassword(ctx)
		require.NoError(t, err)
		ctx.AssertExpectations(t)
	})

	t.Run("malformed target id returns 404", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = adminClaims
		ctx.ParamsM["userId"] = "not-a-uuid"
		ctx.On("JSON", router.StatusNotFound, mock.Anything).Return(nil)

		err := controller.ResetPassword(ctx)
		require.NoError(t, err)
		ctx.AssertExpectations(t)
	})
}

func TestClaimsFromContext(t *testing.T) {
	t.Run("recovers stored claims", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = &auth.JWTClaims{UID: "user-123", UserRole: auth.RoleAdmin}

		claims, err := auth.ClaimsFromContext(ctx, "user")

		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
	})

	t.Run("missing claims error", func(t *testing.T) {
		ctx := router.NewMockContext()

		_, err := auth.ClaimsFromContext(ctx, "user")
		assert.Error(t, err)
	})

	t.Run("wrong type errors", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = "not-claims"

		_, err := auth.ClaimsFromContext(ctx, "user")
		assert.Error(t, err)
	})
}
