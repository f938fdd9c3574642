package errors

import (
	stdErrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDetails are the server fields of a postgres error, whichever driver
// produced it.
type PGDetails struct {
	Code       string
	Constraint string
	Table      string
	Detail     string
}

// Postgres finds the first pgx or lib/pq error in the chain.
func Postgres(err error) (PGDetails, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return PGDetails{Code: pgxErr.Code, Constraint: pgxErr.ConstraintName, Table: pgxErr.TableName, Detail: pgxErr.Detail}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return PGDetails{Code: string(pqErr.Code), Constraint: pqErr.Constraint, Table: pqErr.Table, Detail: pqErr.Detail}, true
	}
	return PGDetails{}, false
}

// LogFields flattens err into structured log fields. Empty values are
// omitted; a nil error yields an empty map.
func LogFields(err error) map[string]any {
	fields := map[string]any{}
	if err == nil {
		return fields
	}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}
	if pg, ok := Postgres(err); ok {
		for key, value := range map[string]string{
			"pg_code":       pg.Code,
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_detail":     pg.Detail,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
