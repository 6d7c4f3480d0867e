package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	apperrors "workflow-intake/internal/common/errors"

	"github.com/lib/pq"
)

const (
	pqClassConnectionException pq.ErrorClass = "08"
	pqUndefinedTable           pq.ErrorCode  = "42P01"
	pqInsufficientPrivilege    pq.ErrorCode  = "42501"
)

// classify wraps errors meaning the registration tables cannot be reached in
// a *TableNotAccessibleError. Anything else is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if tableNotAccessible(err) {
		return apperrors.NewTableNotAccessibleError(err)
	}
	return err
}

func tableNotAccessible(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == pqClassConnectionException ||
			pqErr.Code == pqUndefinedTable ||
			pqErr.Code == pqInsufficientPrivilege
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// nullableBytes maps an empty slice to SQL NULL.
func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func emptyToNull(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
