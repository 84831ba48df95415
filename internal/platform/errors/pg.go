package errors

import (
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the repositories react to
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgStringTruncation    = "22001"
	pgInvalidText         = "22P02"
	pgReadOnlyTx          = "25006"
	pgCannotConnectNow    = "57P03"
)

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false for anything else
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		// handle and email collisions; callers minting handles retry on this
		return ErrorCodeDuplicateKey, true
	case pgForeignKeyViolation, pgStringTruncation, pgInvalidText:
		return ErrorCodeInvalidArgument, true
	case pgNotNullViolation, pgCheckViolation:
		return ErrorCodeValidation, true
	case pgReadOnlyTx, pgCannotConnectNow:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with msg and a mapped code
// errors that already carry a project code (perr.ErrNotFound from a scan helper) keep it
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	if e, ok := As(err); ok {
		return Wrap(err, e.code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// AttachFieldFromPg names the offending column on a wrapped PgError: the
// reported column when there is one, else the constraint name less its table
// and postgres' suffix (eperson_email_key -> email)
func AttachFieldFromPg(err error) error {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return err
	}
	if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
		return WithField(err, col)
	}
	c := strings.TrimSpace(pgErr.ConstraintName)
	for _, suf := range []string{"_pkey", "_fkey", "_key", "_check"} {
		c = strings.TrimSuffix(c, suf)
	}
	if t := strings.TrimSpace(pgErr.TableName); t != "" {
		c = strings.TrimPrefix(c, t+"_")
	} else if i := strings.LastIndex(c, "_"); i >= 0 {
		c = c[i+1:]
	}
	if c == "" || c == pgErr.TableName {
		return err
	}
	return WithField(err, c)
}

// FromPostgresWithField is FromPostgres followed by AttachFieldFromPg
func FromPostgresWithField(err error, msg string) error {
	return AttachFieldFromPg(FromPostgres(err, msg))
}
