// Package database centralises sqlx connection helpers for probing the
// metadata database named by SQLALCHEMY_DATABASE_URI.  The driver is picked
// from the URI scheme: `postgresql` and `postgres` go through pgx's
// database/sql adapter, `mysql` through go-sql-driver/mysql.
//
// Public entry points:
//
//	Open(ctx, uri)                       – quick helper with a tiny pool.
//	OpenWithOptions(ctx, uri, maxOpen, maxIdle) – fine-grained control.
//	Ping(ctx, db)                        – SELECT 1 round trip.
//
// Both openers Ping the database before returning so callers can fail fast.
// Callers should Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// ErrUnsupportedScheme is returned for URIs no registered driver handles.
var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// Open returns a *sqlx.DB with probe-sized defaults: 2 max open, 1 idle.
func Open(ctx context.Context, uri string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, uri, 2, 1)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(ctx context.Context, uri string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	driver, dsn, err := DriverFor(uri)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DriverFor maps a SQLAlchemy-style URI to a database/sql driver name and
// the DSN that driver expects.
func DriverFor(uri string) (driver, dsn string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse database uri: %w", err)
	}

	// SQLAlchemy allows dialect+driver, e.g. postgresql+psycopg2.
	scheme, _, _ := strings.Cut(u.Scheme, "+")

	switch scheme {
	case "postgresql", "postgres":
		u.Scheme = "postgres"
		return "pgx", u.String(), nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		return "mysql", cfg.FormatDSN(), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// Ping runs a trivial query so both the pool and the server are exercised.
func Ping(ctx context.Context, db *sqlx.DB) error {
	var one int
	if err := db.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}
