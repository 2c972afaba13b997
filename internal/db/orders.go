package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

const orderColumns = `order_number, draft_id, user_id, username, line_items, pickup_at,
	first_name, last_name, phone, total, status, cancel_reason,
	receipt_file_id, receipt_kind, refund_account, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CreateOrder stores a new order in pending_payment and assigns its number.
// It is idempotent on DraftID: a second call with the same draft returns the
// order created by the first one and created=false.
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) (_ *models.Order, created bool, err error) {
	if err := order.Validate(); err != nil {
		return nil, false, err
	}
	if db.pricing != nil {
		if err := order.ValidateTotal(db.pricing); err != nil {
			return nil, false, err
		}
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, false, fmt.Errorf("encoding line items: %w", err)
	}

	var stored *models.Order
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getOrder(ctx, tx, `WHERE draft_id = ?`, order.DraftID)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, ErrOrderNotFound) {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE order_counter SET value = value + 1 WHERE id = 1`); err != nil {
			return fmt.Errorf("bumping order counter: %w", err)
		}
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT value FROM order_counter WHERE id = 1`).Scan(&seq); err != nil {
			return fmt.Errorf("reading order counter: %w", err)
		}

		now := db.timestamp()
		number := fmt.Sprintf("%03d", seq)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (`+orderColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', '', '', '', ?, ?)`,
			number, order.DraftID, order.UserID, order.Username, string(items), order.PickupAt.UTC(),
			order.Recipient.First, order.Recipient.Last, order.Phone, order.Total.String(),
			models.StatusPendingPayment, now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		if err := appendHistory(ctx, tx, number, models.StatusChange{
			To:      models.StatusPendingPayment,
			ActorID: order.UserID,
			At:      now,
		}); err != nil {
			return err
		}

		stored, err = getOrder(ctx, tx, `WHERE order_number = ?`, number)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetOrder returns the order with its status history.
func (db *DB) GetOrder(ctx context.Context, number string) (*models.Order, error) {
	var order *models.Order
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = getOrder(ctx, tx, `WHERE order_number = ?`, number)
		if err != nil {
			return err
		}
		order.History, err = loadHistory(ctx, tx, number)
		return err
	})
	return order, err
}

// TransitionStatus applies t atomically: the order moves to t.To only while
// its status is one of t.From, otherwise a *ConflictError carrying the
// current status is returned and nothing changes. A transition to the status
// the order already has only updates the attached fields.
func (db *DB) TransitionStatus(ctx context.Context, number string, t models.Transition) (*models.Order, error) {
	at := t.At
	if at.IsZero() {
		at = db.timestamp()
	}
	at = at.UTC()

	var order *models.Order
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE order_number = ?`, number).Scan(&raw)
		if isNoRows(err) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("reading order status: %w", err)
		}
		current, err := models.ParseStatus(raw)
		if err != nil {
			return err
		}
		if !t.Allows(current) {
			return &ConflictError{Number: number, Current: current}
		}
		if current != t.To && !current.CanTransitionTo(t.To) {
			return fmt.Errorf("illegal transition %s -> %s for order %s", current, t.To, number)
		}

		sets := []string{"status = ?", "updated_at = ?"}
		args := []any{t.To, at}
		if t.Reason != models.CancelReasonNone {
			sets = append(sets, "cancel_reason = ?")
			args = append(args, t.Reason)
		}
		if t.Receipt != nil {
			sets = append(sets, "receipt_file_id = ?", "receipt_kind = ?")
			args = append(args, t.Receipt.FileID, t.Receipt.Kind)
		}
		if t.RefundAccount != "" {
			sets = append(sets, "refund_account = ?")
			args = append(args, t.RefundAccount)
		}
		args = append(args, number, current)

		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE order_number = ? AND status = ?`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		if rows, err := res.RowsAffected(); err != nil {
			return err
		} else if rows == 0 {
			return &ConflictError{Number: number, Current: current}
		}

		if current != t.To {
			if err := appendHistory(ctx, tx, number, models.StatusChange{
				From:    current,
				To:      t.To,
				Reason:  t.Reason,
				ActorID: t.ActorID,
				At:      at,
			}); err != nil {
				return err
			}
		}

		order, err = getOrder(ctx, tx, `WHERE order_number = ?`, number)
		if err != nil {
			return err
		}
		order.History, err = loadHistory(ctx, tx, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns a customer's orders, newest first.
func (db *DB) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return listOrders(ctx, db.conn, `WHERE user_id = ? ORDER BY created_at DESC, order_number DESC`, userID)
}

// ListAll returns every order, newest first.
func (db *DB) ListAll(ctx context.Context) ([]models.Order, error) {
	return listOrders(ctx, db.conn, `ORDER BY created_at DESC, order_number DESC`)
}

// ListByStatus returns orders in any of statuses, oldest first.
func (db *DB) ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = s
	}
	return listOrders(ctx, db.conn,
		`WHERE status IN (`+strings.Join(placeholders, ", ")+`) ORDER BY created_at ASC, order_number ASC`,
		args...,
	)
}

func getOrder(ctx context.Context, q queryer, where string, args ...any) (*models.Order, error) {
	row := q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, args...)
	order, err := scanOrder(row)
	if isNoRows(err) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func listOrders(ctx context.Context, q queryer, clause string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order         models.Order
		items         string
		total         string
		status        string
		reason        string
		receiptFileID string
		receiptKind   string
		pickupAt      time.Time
		createdAt     time.Time
		updatedAt     time.Time
	)
	err := row.Scan(
		&order.Number, &order.DraftID, &order.UserID, &order.Username, &items, &pickupAt,
		&order.Recipient.First, &order.Recipient.Last, &order.Phone, &total, &status, &reason,
		&receiptFileID, &receiptKind, &order.RefundAccount, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(items), &order.Items); err != nil {
		return nil, fmt.Errorf("decoding line items of order %s: %w", order.Number, err)
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decoding total of order %s: %w", order.Number, err)
	}
	if order.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	order.CancelReason = models.CancelReason(reason)
	if receiptFileID != "" {
		order.Receipt = &models.ReceiptRef{FileID: receiptFileID, Kind: models.ReceiptKind(receiptKind)}
	}
	order.PickupAt = pickupAt.UTC()
	order.CreatedAt = createdAt.UTC()
	order.UpdatedAt = updatedAt.UTC()
	return &order, nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, number string, change models.StatusChange) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_number, from_status, to_status, reason, actor_id, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		number, change.From, change.To, change.Reason, change.ActorID, change.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending status history: %w", err)
	}
	return nil
}

func loadHistory(ctx context.Context, q queryer, number string) ([]models.StatusChange, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT from_status, to_status, reason, actor_id, changed_at
		 FROM order_status_history WHERE order_number = ? ORDER BY id ASC`, number,
	)
	if err != nil {
		return nil, fmt.Errorf("loading status history: %w", err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var (
			change    models.StatusChange
			from, to  string
			reason    string
			changedAt time.Time
		)
		if err := rows.Scan(&from, &to, &reason, &change.ActorID, &changedAt); err != nil {
			return nil, err
		}
		change.From = models.Status(from)
		change.To = models.Status(to)
		change.Reason = models.CancelReason(reason)
		change.At = changedAt.UTC()
		history = append(history, change)
	}
	return history, rows.Err()
}
