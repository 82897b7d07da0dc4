package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RunInTx executes fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Panics roll
// back before re-raising. Every write of a booking or cancellation flow
// goes through the single *sqlx.Tx handle passed to fn, so either all of
// its statements become visible or none do.
func RunInTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
