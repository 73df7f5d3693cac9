package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-routine-api/pkg/config"
)

// SQLSTATEs raised by unique indexes and exclusion constraints.
const (
	uniqueViolation    = pq.ErrorCode("23505")
	exclusionViolation = pq.ErrorCode("23P01")
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// UniqueConstraint reports the constraint name when err is a PostgreSQL unique violation.
func UniqueConstraint(err error) (string, bool) {
	return violated(err, uniqueViolation)
}

// ExclusionConstraint reports the constraint name when err is a PostgreSQL exclusion violation.
func ExclusionConstraint(err error) (string, bool) {
	return violated(err, exclusionViolation)
}

func violated(err error, code pq.ErrorCode) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if pqErr.Code != code {
		return "", false
	}
	return pqErr.Constraint, true
}
