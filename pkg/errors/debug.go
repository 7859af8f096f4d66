package errors

import (
	stdErrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dump flattens an error chain into loggable fields, surfacing Postgres
// driver details when present.
type ErrorDump struct {
	TopMessage   string
	Code         string
	Chain        []string
	PGCode       string
	PGDetail     string
	PGMessage    string
	PGTable      string
	PGConstraint string
}

func Dump(err error) ErrorDump {
	dump := ErrorDump{}
	if err == nil {
		return dump
	}
	dump.TopMessage = err.Error()

	if typed := As(err); typed != nil {
		dump.Code = string(typed.Code())
	}

	for cursor := err; cursor != nil; cursor = stdErrors.Unwrap(cursor) {
		dump.Chain = append(dump.Chain, cursor.Error())
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		dump.PGCode = pgErr.Code
		dump.PGDetail = pgErr.Detail
		dump.PGMessage = pgErr.Message
		dump.PGTable = pgErr.TableName
		dump.PGConstraint = pgErr.ConstraintName
	}
	return dump
}
