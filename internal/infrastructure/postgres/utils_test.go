package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/mercado-ledger/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(errors.New("ERROR: duplicate key (SQLSTATE 23505)")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsContention(t *testing.T) {
	for _, code := range []string{"55P03", "40001", "40P01"} {
		assert.True(t, isContention(fmt.Errorf("tx: %w", &pgconn.PgError{Code: code})), code)
	}
	assert.False(t, isContention(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isContention(errors.New("timeout")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isForeignKeyViolation(errors.New("23503")))
}

func TestTranslateTxError(t *testing.T) {
	overflow := fmt.Errorf("insert movement: %w", &pgconn.PgError{Code: "22003", Message: "numeric field overflow"})
	assert.True(t, isDataException(overflow))
	assert.ErrorIs(t, translateTxError(overflow), domain.ErrInvalidInput)
	assert.ErrorIs(t, translateTxError(&pgconn.PgError{Code: "22P02"}), domain.ErrInvalidInput)

	assert.ErrorIs(t, translateTxError(&pgconn.PgError{Code: "40P01"}), domain.ErrConflict)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, translateTxError(plain))
	assert.False(t, isDataException(plain))
}
