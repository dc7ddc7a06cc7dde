package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/mercado-ledger/internal/domain"
)

// Códigos SQLSTATE que el adaptador traduce a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeLockNotAvailable    = "55P03"
	codeSerialization       = "40001"
	codeDeadlockDetected    = "40P01"

	// clase 22: overflow numérico, texto inválido para el tipo, etc.
	classDataException = "22"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// isContention indica lock_timeout, deadlock o fallo de serialización: la
// operación puede reintentarse tal cual.
func isContention(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeSerialization, codeDeadlockDetected:
		return true
	}
	return false
}

// isDataException indica un valor que la base rechaza por su tipo (clase 22).
// Repetir la operación no cambia el resultado.
func isDataException(err error) bool {
	return strings.HasPrefix(pgCode(err), classDataException)
}

// translateTxError convierte los errores de PostgreSQL que escapan de una
// transacción en centinelas de dominio.
func translateTxError(err error) error {
	switch {
	case isContention(err):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case isDataException(err):
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return err
}
