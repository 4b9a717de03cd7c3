package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDetail is the driver-independent part of a Postgres error.
type PGDetail struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorDump flattens an error tree for logging. It is never sent to clients.
type ErrorDump struct {
	Message  string    `json:"message"`
	Code     Code      `json:"code,omitempty"`
	Chain    []string  `json:"chain,omitempty"`
	Postgres *PGDetail `json:"postgres,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Message: err.Error(), Postgres: postgresDetail(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	walk(err, func(e error) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	})
	return d
}

// Fields renders the dump as log fields, omitting what is empty.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.Message}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		for key, value := range map[string]string{
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_detail":     pg.Detail,
			"pg_message":    pg.Message,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}

// walk visits err and its causes depth first, following joined errors as well.
func walk(err error, visit func(error)) {
	if err == nil {
		return
	}
	visit(err)
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}

func postgresDetail(err error) *PGDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDetail{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
