package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound processes a database query result, converting sql.ErrNoRows
// to a nil result without error. Find* and conditional UPDATE ... RETURNING
// queries use it, since a missing row is not an error condition for them.
//
// Usage:
//
//	var req model.ItineraryRequest
//	err := r.db.GetContext(ctx, &req, query, args...)
//	return HandleNotFound(&req, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
