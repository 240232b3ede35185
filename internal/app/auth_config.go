package app

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/internal/database"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SessionServiceConfig converts AuthConfig into SessionService parameters.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	ttl := c.Session.RefreshTTL
	if ttl <= 0 {
		ttl = auth.DefaultRefreshTokenTTL
	}

	length := c.Session.RefreshLength
	if length <= 0 {
		length = 48
	}

	return auth.SessionConfig{
		RefreshTokenTTL: ttl,
		RefreshLength:   length,
	}
}

// IdentityServiceConfig converts AuthConfig into IdentityService parameters.
// Out of range bcrypt costs fall back to the library default.
func (c AuthConfig) IdentityServiceConfig() services.IdentityConfig {
	cost := c.PasswordCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return services.IdentityConfig{PasswordCost: cost}
}

// GateConfig converts AuthConfig into authorization gate parameters.
func (c AuthConfig) GateConfig() permissions.GateConfig {
	return permissions.GateConfig{AdminCanReview: c.AdminCanReview}
}

// ConnectionConfig converts DatabaseConfig into database.Open parameters.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.Username,
		Password:        c.Password,
		Name:            c.Name,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}
