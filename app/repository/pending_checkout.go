package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/schedulaa/ms-go-checkout/app/entity"
)

var (
	ErrPendingCheckoutNotFound      = errors.New("pending checkout not found")
	ErrPendingCheckoutAlreadyExists = errors.New("pending checkout already exists")
)

type PendingCheckoutFilter struct {
	CompanyID uint64
	Limit     int32
	Offset    int32
}

type PendingCheckoutRepository struct {
	db    DBTX
	sqlDB *sql.DB
}

func NewPendingCheckoutRepository(db *sql.DB) *PendingCheckoutRepository {
	return &PendingCheckoutRepository{db: db, sqlDB: db}
}

func (r *PendingCheckoutRepository) withTx(tx *sql.Tx) *PendingCheckoutRepository {
	return &PendingCheckoutRepository{db: tx, sqlDB: r.sqlDB}
}

const pendingCheckoutColumns = `id, company_id, cart_json, extra_json, payment_intent_id, checkout_session_id, created_at, updated_at`

func (r *PendingCheckoutRepository) Create(ctx context.Context, row *entity.PendingCheckout) error {
	cartJSON, err := serializeDoc(row.Cart)
	if err != nil {
		return err
	}
	extraJSON, err := serializeDoc(row.Extra)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pending_checkouts (
			company_id, cart_json, extra_json, payment_intent_id, checkout_session_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		row.CompanyID,
		cartJSON,
		extraJSON,
		nullableStringValue(row.PaymentIntentID),
		nullableStringValue(row.CheckoutSessionID),
		row.CreatedAt,
		nullableTimeValue(row.UpdatedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPendingCheckoutAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	row.ID = uint64(id)
	return nil
}

func (r *PendingCheckoutRepository) Update(ctx context.Context, row *entity.PendingCheckout) error {
	cartJSON, err := serializeDoc(row.Cart)
	if err != nil {
		return err
	}
	extraJSON, err := serializeDoc(row.Extra)
	if err != nil {
		return err
	}

	query := `
		UPDATE pending_checkouts SET
			cart_json = ?,
			extra_json = ?,
			payment_intent_id = ?,
			checkout_session_id = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		cartJSON,
		extraJSON,
		nullableStringValue(row.PaymentIntentID),
		nullableStringValue(row.CheckoutSessionID),
		nullableTimeValue(row.UpdatedAt),
		row.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPendingCheckoutNotFound
	}

	return nil
}

// SaveAll persists a release pass as a single transaction so a pass either
// lands completely or not at all.
func (r *PendingCheckoutRepository) SaveAll(ctx context.Context, rows []*entity.PendingCheckout) error {
	if len(rows) == 0 {
		return nil
	}
	if r.sqlDB == nil {
		return errors.New("pending checkout repository is not transactional")
	}

	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := r.withTx(tx)
	for _, row := range rows {
		if err := txRepo.Update(ctx, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("saving pending checkout %d: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

func (r *PendingCheckoutRepository) FindByID(ctx context.Context, id uint64) (*entity.PendingCheckout, error) {
	query := `
		SELECT ` + pendingCheckoutColumns + `
		FROM pending_checkouts
		WHERE id = ?
	`

	row := &entity.PendingCheckout{}
	if err := scanPendingCheckout(r.db.QueryRowContext(ctx, query, id), row); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return row, nil
}

func (r *PendingCheckoutRepository) List(ctx context.Context, filter PendingCheckoutFilter) ([]*entity.PendingCheckout, error) {
	query := `
		SELECT ` + pendingCheckoutColumns + `
		FROM pending_checkouts
		WHERE company_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, filter.CompanyID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPendingCheckouts(rows)
}

// ListStale returns a company's checkouts last touched at or before cutoff.
// Rows without an updated_at are never considered stale.
func (r *PendingCheckoutRepository) ListStale(ctx context.Context, companyID uint64, cutoff time.Time) ([]*entity.PendingCheckout, error) {
	query := `
		SELECT ` + pendingCheckoutColumns + `
		FROM pending_checkouts
		WHERE company_id = ?
		  AND updated_at IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPendingCheckouts(rows)
}

func (r *PendingCheckoutRepository) CompaniesWithStale(ctx context.Context, cutoff time.Time, limit int32) ([]uint64, error) {
	query := `
		SELECT DISTINCT company_id
		FROM pending_checkouts
		WHERE updated_at IS NOT NULL
		  AND updated_at <= ?
		ORDER BY company_id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]uint64, 0)
	for rows.Next() {
		var companyID uint64
		if err := rows.Scan(&companyID); err != nil {
			return nil, err
		}
		companies = append(companies, companyID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return companies, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPendingCheckout(scan rowScanner, row *entity.PendingCheckout) error {
	var cartJSON string
	var extraJSON string
	var paymentIntentID sql.NullString
	var checkoutSessionID sql.NullString
	var updatedAt sql.NullTime

	err := scan.Scan(
		&row.ID,
		&row.CompanyID,
		&cartJSON,
		&extraJSON,
		&paymentIntentID,
		&checkoutSessionID,
		&row.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return err
	}

	row.PaymentIntentID = stringPtrFromNull(paymentIntentID)
	row.CheckoutSessionID = stringPtrFromNull(checkoutSessionID)
	row.UpdatedAt = timePtrFromNull(updatedAt)

	cart, err := parseDoc(cartJSON)
	if err != nil {
		return err
	}
	row.Cart = cart

	extra, err := parseDoc(extraJSON)
	if err != nil {
		return err
	}
	row.Extra = extra

	return nil
}

func collectPendingCheckouts(rows *sql.Rows) ([]*entity.PendingCheckout, error) {
	items := make([]*entity.PendingCheckout, 0)
	for rows.Next() {
		item := &entity.PendingCheckout{}
		if err := scanPendingCheckout(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
