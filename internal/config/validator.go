// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// The default load is lenient: missing variables flow into the snapshot as
// placeholder text and surface later as connection failures in the
// runtime.  Strict mode calls `validateSnapshot` right after assembly so
// the process refuses to start with partial configuration instead.
//
// Validation runs on `strictView`, a flat projection of the snapshot whose
// `env` tags double as field names in error messages.  One custom rule is
// registered here: `tcp_port`, a decimal port in 1..65535.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every strict-mode validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	_ = val.RegisterValidation("tcp_port", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n > 0 && n < 65536
	})
	return val
}

// strictView holds the values strict mode insists on.  Unset parts are
// projected as empty strings so `required` catches them.
type strictView struct {
	DatabaseUser     string `env:"DATABASE_USER"       validate:"required"`
	DatabasePassword string `env:"DATABASE_PASSWORD"   validate:"required"`
	DatabaseHost     string `env:"DATABASE_HOST"       validate:"required,hostname_rfc1123|ip"`
	DatabasePort     string `env:"DATABASE_PORT"       validate:"required,tcp_port"`
	DatabaseDB       string `env:"DATABASE_DB"         validate:"required"`
	RedisPort        string `env:"REDIS_PORT"          validate:"required,tcp_port"`
	SecretKey        string `env:"SUPERSET_SECRET_KEY" validate:"required"`
}

func setValue(p Part) string {
	if !p.Set {
		return ""
	}
	return p.Value
}

//
// public API
//

// validateSnapshot returns the first validation error, or nil on success.
func validateSnapshot(s *Snapshot) error {
	view := strictView{
		DatabaseUser:     setValue(s.Database.User),
		DatabasePassword: setValue(s.Database.Password),
		DatabaseHost:     setValue(s.Database.Host),
		DatabasePort:     setValue(s.Database.Port),
		DatabaseDB:       setValue(s.Database.DB),
		RedisPort:        s.Cache.RedisPort,
		SecretKey:        setValue(s.SecretKey),
	}
	err := v.Struct(view)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}
