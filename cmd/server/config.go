package main

import (
	"fmt"
	"time"

	auth "github.com/goliatone/go-marketplace-auth"
	"github.com/spf13/viper"
)

// AppConfig holds everything the server needs to boot. The Auth section
// satisfies the auth.Config interface so it can be handed straight to
// NewAuthenticator and the HTTP controller.
type AppConfig struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth  AuthConfig
	Owner auth.BootstrapOwner
}

type AuthConfig struct {
	SigningKey      string
	ContextKey      string
	AuthScheme      string
	TokenExpiration int
	Issuer          string
	Audience        []string
	StoreTimeout    time.Duration
}

func (c AuthConfig) GetSigningKey() string          { return c.SigningKey }
func (c AuthConfig) GetContextKey() string          { return c.ContextKey }
func (c AuthConfig) GetAuthScheme() string          { return c.AuthScheme }
func (c AuthConfig) GetTokenExpiration() int        { return c.TokenExpiration }
func (c AuthConfig) GetIssuer() string              { return c.Issuer }
func (c AuthConfig) GetAudience() []string          { return c.Audience }
func (c AuthConfig) GetStoreTimeout() time.Duration { return c.StoreTimeout }

// LoadConfig reads YAML config from path, layered with AUTH_* environment
// variables. Missing file is only an error when no signing key came from
// the environment either.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("AUTH")
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:marketplace.db?cache=shared&_pragma=foreign_keys(1)")
	v.SetDefault("auth.context_key", "user")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.token_expiration", 720)
	v.SetDefault("auth.issuer", "marketplace")
	v.SetDefault("auth.store_timeout", "3s")

	if err := v.ReadInConfig(); err != nil {
		if v.GetString("auth.signing_key") == "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &AppConfig{}
	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.DSN = v.GetString("database.dsn")

	cfg.Auth = AuthConfig{
		SigningKey:      v.GetString("auth.signing_key"),
		ContextKey:      v.GetString("auth.context_key"),
		AuthScheme:      v.GetString("auth.auth_scheme"),
		TokenExpiration: v.GetInt("auth.token_expiration"),
		Issuer:          v.GetString("auth.issuer"),
		Audience:        v.GetStringSlice("auth.audience"),
		StoreTimeout:    v.GetDuration("auth.store_timeout"),
	}

	cfg.Owner = auth.BootstrapOwner{
		Name:     v.GetString("owner.name"),
		Username: v.GetString("owner.username"),
		Email:    v.GetString("owner.email"),
		Password: v.GetString("owner.password"),
	}

	if cfg.Auth.SigningKey == "" {
		return nil, fmt.Errorf("auth.signing_key is required")
	}

	return cfg, nil
}
