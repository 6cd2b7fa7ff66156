package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"lendledger/internal/domain/apperr"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers the ledger reacts to.
const (
	erTooManyConnections = 1040
	erTooManyUserConns   = 1203
	erLockWaitTimeout    = 1205
	erLockDeadlock       = 1213
	erDupEntry           = 1062
)

// classify maps a store error onto the apperr taxonomy. what names the record
// for not-found and duplicate messages.
func classify(err error, what string, args ...any) error {
	if err == nil || apperr.Classified(err) {
		return err
	}
	subject := fmt.Sprintf(what, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", subject)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", subject)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn), errors.Is(err, mysqldrv.ErrInvalidConn):
		return apperr.Unavailable(apperr.UnavailableRetryAfter, err)
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case erTooManyConnections, erTooManyUserConns:
			return apperr.RateLimited(apperr.RateLimitedRetryAfter, err)
		case erLockWaitTimeout, erLockDeadlock:
			return apperr.Unavailable(apperr.UnavailableRetryAfter, err)
		case erDupEntry:
			return apperr.Conflict("%s already exists", subject)
		}
	}
	return apperr.Internal(err)
}

// staleWrite is returned when a versioned write matched no row.
func staleWrite(what string, args ...any) error {
	return apperr.Stale("%s was modified concurrently, reload and retry", fmt.Sprintf(what, args...))
}

// batchChunk bounds the IN list of one batched read.
const batchChunk = 100

func chunks(ids []string) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += batchChunk {
		end := start + batchChunk
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
