package internal

import (
	"errors"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5/pgtype"
)

// asEngineError finds an [engine.Error] in the chain of an error, e.g. thrown by a script.
func asEngineError(err error) (engine.Error, bool) {
	var engineErr engine.Error
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return engine.Error{}, false
}

// text returns a valid text, unless s is empty.
func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func timeOrNil(v pgtype.Timestamp) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func pgtypeInt8(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}
