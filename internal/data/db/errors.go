package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrDuplicate = errors.New("duplicate key")

const pgUniqueViolation = "23505"

// IsDuplicate reports unique constraint violations from either driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// TranslateError maps driver errors onto ErrDuplicate; other errors pass through.
func TranslateError(err error) error {
	if IsDuplicate(err) && !errors.Is(err, ErrDuplicate) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// PageLimit maps a non-positive limit to -1, which gorm renders as no LIMIT.
func PageLimit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
