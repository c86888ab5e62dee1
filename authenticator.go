package auth

import (
	"context"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const defaultStoreTimeout = 3 * time.Second

var (
	nameFormat     = regexp.MustCompile(`^[a-zA-Z ]+$`)
	usernameFormat = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// RegisterPayload carries a registration request.
type RegisterPayload struct {
	Name     string `form:"name" json:"name"`
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules, reporting every violated field.
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required,
			validation.Length(2, 50),
			validation.Match(nameFormat).Error("must contain only letters and spaces"),
		),
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(3, 30),
			validation.Match(usernameFormat).Error("must contain only letters, digits and underscore"),
		),
		validation.Field(&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(&r.Password,
			validation.Required,
			PasswordStrength,
		),
	)
}

// ChangePasswordPayload carries a self-service password change.
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, PasswordStrength),
	)
}

// ResetPasswordPayload carries an administrative password reset.
type ResetPasswordPayload struct {
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, PasswordStrength),
	)
}

// AuthResult is what register and login hand back to the transport layer.
// Degraded is true when the fallback cache served the operation; the user
// record then only exists in process memory.
type AuthResult struct {
	User     *User  `json:"user"`
	Token    string `json:"token"`
	Degraded bool   `json:"-"`
}

// Auther orchestrates every credential operation against the durable store
// first and the fallback cache second.
type Auther struct {
	store        CredentialStore
	cache        *FallbackCache
	tokenService TokenService
	logger       Logger
	storeTimeout time.Duration
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(store CredentialStore, cache *FallbackCache, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	storeTimeout := opts.GetStoreTimeout()
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}

	return &Auther{
		store:        store,
		cache:        cache,
		tokenService: tokenService,
		logger:       defLogger{},
		storeTimeout: storeTimeout,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service built from Config.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates an account and issues its first session token. Uniqueness
// is checked against the cache and, when reachable, the durable store; the
// record is created in whichever backend accepted the check.
func (s *Auther) Register(ctx context.Context, payload RegisterPayload) (*AuthResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	email := NormalizeEmail(payload.Email)
	username := NormalizeUsername(payload.Username)

	// the cache always answers and holds anything written during an outage,
	// bootstrap owner included
	if _, err := s.cache.FindByEmailOrUsername(ctx, email, username); err == nil {
		return nil, ErrDuplicateIdentity
	}

	degraded := false

	tctx, cancel := s.storeCtx(ctx)
	_, err := s.store.FindByEmailOrUsername(tctx, email, username)
	cancel()

	switch {
	case err == nil:
		return nil, ErrDuplicateIdentity
	case IsUnavailable(err):
		s.logger.Warn("Register falling back to cache for %s: %v", email, err)
		degraded = true
	case !IsNotFound(err):
		return nil, err
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record := &User{
		Name:         payload.Name,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}

	var created *User
	if degraded {
		created, err = s.cache.Create(ctx, record)
	} else {
		tctx, cancel := s.storeCtx(ctx)
		created, err = s.store.Create(tctx, record)
		cancel()

		if IsUnavailable(err) {
			s.logger.Warn("Register store write failed for %s, falling back to cache: %v", email, err)
			degraded = true
			created, err = s.cache.Create(ctx, record)
		}
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokenService.Generate(NewIdentityFromUser(created))
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:     created.Sanitize(),
		Token:    token,
		Degraded: degraded,
	}, nil
}

// Login verifies credentials and issues a session token. Unknown accounts
// and wrong passwords fail identically.
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, degraded, err := s.lookup(ctx, func(c context.Context, store CredentialStore) (*User, error) {
		return store.FindByEmail(c, email)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login stored hash unreadable for user %s", user.ID)
		return nil, ErrCorruptCredential
	}

	token, err := s.tokenService.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	if !degraded && !user.Temporary {
		if tracker, ok := s.store.(Users); ok {
			tctx, cancel := s.storeCtx(ctx)
			if err := tracker.TrackSuccessfulLogin(tctx, user); err != nil {
				s.logger.Warn("Login bookkeeping failed for user %s: %v", user.ID, err)
			}
			cancel()
		}
	}

	return &AuthResult{
		User:     user.Sanitize(),
		Token:    token,
		Degraded: degraded || user.Temporary,
	}, nil
}

// CurrentUser resolves a bearer identity to a fresh record; token claims are
// trusted for identity only.
func (s *Auther) CurrentUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, _, err := s.lookup(ctx, func(c context.Context, store CredentialStore) (*User, error) {
		return store.FindByID(c, id)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user.Sanitize(), nil
}

// ChangePassword verifies the current password and persists the new hash in
// whichever backend holds the record.
func (s *Auther) ChangePassword(ctx context.Context, id uuid.UUID, payload ChangePasswordPayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	user, degraded, err := s.lookup(ctx, func(c context.Context, store CredentialStore) (*User, error) {
		return store.FindByID(c, id)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(payload.CurrentPassword, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("ChangePassword stored hash unreadable for user %s", user.ID)
		return nil, ErrCorruptCredential
	}

	hash, err := HashPassword(payload.NewPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if degraded || user.Temporary {
		err = s.cache.UpdatePassword(ctx, user.ID, hash)
	} else {
		tctx, cancel := s.storeCtx(ctx)
		err = s.store.UpdatePassword(tctx, user.ID, hash)
		cancel()
	}
	if err != nil {
		return nil, err
	}

	return user.Sanitize(), nil
}

// ResetPassword lets an admin or owner set a new password for another
// account without knowing the current one. It never falls back: an
// administrative reset against the cache would evaporate on restart, so an
// unreachable store surfaces as unavailable instead.
func (s *Auther) ResetPassword(ctx context.Context, requesterRole UserRole, targetID uuid.UUID, payload ResetPasswordPayload) (*User, error) {
	if !RoleIn(requesterRole, RoleAdmin, RoleOwner) {
		return nil, ErrForbidden
	}

	if err := payload.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	tctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.store.FindByID(tctx, targetID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	hash, err := HashPassword(payload.NewPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := s.store.UpdatePassword(tctx, user.ID, hash); err != nil {
		return nil, err
	}

	return user.Sanitize(), nil
}

// EnsureOwner makes the configured owner account durable. Called at
// startup after the cache seed: when the store already holds an owner that
// record wins; a second owner with different credentials is refused. When
// the store is unreachable the cache seed keeps serving degraded logins.
func (s *Auther) EnsureOwner(ctx context.Context, owner BootstrapOwner) (*User, error) {
	tctx, cancel := s.storeCtx(ctx)
	defer cancel()

	existing, err := s.store.FindByRole(tctx, RoleOwner)
	if err == nil {
		if existing.Email != NormalizeEmail(owner.Email) {
			return nil, ErrOwnerExists
		}
		return existing.Sanitize(), nil
	}

	if IsUnavailable(err) {
		s.logger.Warn("EnsureOwner store unreachable, owner remains cache-only")
		cached, cerr := s.cache.FindByRole(ctx, RoleOwner)
		if cerr != nil {
			return nil, err
		}
		return cached.Sanitize(), nil
	}

	if !IsNotFound(err) {
		return nil, err
	}

	hash, err := HashPassword(owner.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record := &User{
		Name:         owner.Name,
		Username:     owner.Username,
		Email:        owner.Email,
		PasswordHash: hash,
		Role:         RoleOwner,
	}

	created, err := s.store.Create(tctx, record)
	if err != nil {
		return nil, err
	}

	return created.Sanitize(), nil
}

// lookup runs the query against the durable store under the bounded timeout
// and retries exactly once against the cache when the store is unreachable
// or has no record. The cache consultation on not-found keeps cache-only
// accounts (bootstrap owner, outage registrations) reachable while the
// store is healthy.
func (s *Auther) lookup(ctx context.Context, query func(context.Context, CredentialStore) (*User, error)) (*User, bool, error) {
	tctx, cancel := s.storeCtx(ctx)
	user, err := query(tctx, s.store)
	cancel()

	if err == nil {
		return user, false, nil
	}

	degraded := IsUnavailable(err)
	if !degraded && !IsNotFound(err) {
		return nil, false, err
	}

	if degraded {
		s.logger.Warn("credential store unreachable, consulting fallback cache: %v", err)
	}

	user, cerr := query(ctx, s.cache)
	if cerr != nil {
		if degraded {
			// preserve the degraded signal over the cache miss
			return nil, true, cerr
		}
		return nil, false, err
	}

	return user, degraded, nil
}

func (s *Auther) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
