package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

const offerColumns = `id, donor_id, description, quantity, expiry_date, status,
       pickup_date, pickup_start, pickup_end, pickup_code, created_at, updated_at`

const claimColumns = `id, offer_id, receiver_id, status, claimed_at,
       confirmed_date, confirmed_start, confirmed_end`

// OfferRepo represents the offer and claim repository.
type OfferRepo struct {
	db *pgxpool.Pool
}

// NewOfferRepo creates a new OfferRepo.
func NewOfferRepo(db *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *OfferRepo) WithTx(ctx context.Context, fn func(tx offertx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// roll back on panic before re-raising
	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// InsertOffer stores a new offer posted by a donor.
func (r *OfferRepo) InsertOffer(ctx context.Context, o *domain.Offer) error {
	var date *time.Time
	var start, end *int16
	if w := o.DefaultWindow; w != nil {
		d := w.Date.UTC().Truncate(24 * time.Hour)
		s, e := int16(w.Start), int16(w.End)
		date, start, end = &d, &s, &e
	}
	err := r.db.QueryRow(ctx, `
        INSERT INTO offers (donor_id, description, quantity, expiry_date, status,
                            pickup_date, pickup_start, pickup_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `, o.DonorID, o.Description, o.Quantity, o.ExpiryDate, string(o.Status),
		date, start, end).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// GetOffer - get an offer by ID without locking.
func (r *OfferRepo) GetOffer(ctx context.Context, id int64) (*domain.Offer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer %d: %w", id, err)
	}
	return o, nil
}

// GetActiveClaim - get the offer's active claim without locking, nil if none.
func (r *OfferRepo) GetActiveClaim(ctx context.Context, offerID int64) (*domain.Claim, error) {
	row := r.db.QueryRow(ctx, `
        SELECT `+claimColumns+`
        FROM claims
        WHERE offer_id = $1 AND status = $2
    `, offerID, string(domain.ClaimActive))
	c, err := scanClaim(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active claim for offer %d: %w", offerID, err)
	}
	return c, nil
}

// ListOfferIDsByStatus returns ids of offers in the given status whose last
// update is older than the cutoff. The cutoff is the sweeps' grace period:
// rows touched after it are skipped to avoid racing the writing transaction.
func (r *OfferRepo) ListOfferIDsByStatus(ctx context.Context, status domain.OfferStatus, updatedBefore time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id FROM offers
        WHERE status = $1 AND updated_at < $2
        ORDER BY id
    `, string(status), updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("list offers by status %s: %w", status, err)
	}
	return collectIDs(rows)
}

// ListExpiredOfferIDs returns ids of open offers whose expiry date is
// strictly before the given day.
func (r *OfferRepo) ListExpiredOfferIDs(ctx context.Context, day time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id FROM offers
        WHERE status IN ($1, $2) AND expiry_date < $3
        ORDER BY id
    `, string(domain.OfferAvailable), string(domain.OfferClaimed), day)
	if err != nil {
		return nil, fmt.Errorf("list expired offers: %w", err)
	}
	return collectIDs(rows)
}

// ListEvents returns the offer's timeline, oldest first.
func (r *OfferRepo) ListEvents(ctx context.Context, offerID int64) ([]timeline.Event, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, offer_id, event_type, actor, old_status, new_status,
               details, visible_to_users, created_at
        FROM timeline_events
        WHERE offer_id = $1
        ORDER BY id
    `, offerID)
	if err != nil {
		return nil, fmt.Errorf("list events for offer %d: %w", offerID, err)
	}
	defer rows.Close()

	var events []timeline.Event
	for rows.Next() {
		var ev timeline.Event
		var oldStatus, newStatus string
		if err := rows.Scan(&ev.ID, &ev.OfferID, &ev.EventType, &ev.Actor,
			&oldStatus, &newStatus, &ev.Details, &ev.VisibleToUsers, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OldStatus = domain.OfferStatus(oldStatus)
		ev.NewStatus = domain.OfferStatus(newStatus)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordEvent - append a timeline event outside any transaction.
func (r *OfferRepo) RecordEvent(ctx context.Context, ev timeline.Event) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO timeline_events (offer_id, event_type, actor, old_status,
                                     new_status, details, visible_to_users)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, ev.OfferID, ev.EventType, ev.Actor, string(ev.OldStatus), string(ev.NewStatus),
		ev.Details, ev.VisibleToUsers)
	if err != nil {
		return fmt.Errorf("record timeline event %s: %w", ev.EventType, err)
	}
	return nil
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TxRepo represents the transactional offer repository.
type TxRepo struct {
	tx pgx.Tx
}

// GetOfferForUpdate - load an offer and lock its row until commit.
func (r *TxRepo) GetOfferForUpdate(ctx context.Context, id int64) (*domain.Offer, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+offerColumns+`
        FROM offers
        WHERE id = $1
        FOR UPDATE
    `, id)
	o, err := scanOffer(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer %d for update: %w", id, err)
	}
	return o, nil
}

// GetClaim - load a claim by id without locking.
func (r *TxRepo) GetClaim(ctx context.Context, id int64) (*domain.Claim, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+claimColumns+`
        FROM claims
        WHERE id = $1
    `, id)
	c, err := scanClaim(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get claim %d: %w", id, err)
	}
	return c, nil
}

// GetClaimForUpdate - load a claim by id and lock its row until commit.
func (r *TxRepo) GetClaimForUpdate(ctx context.Context, id int64) (*domain.Claim, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+claimColumns+`
        FROM claims
        WHERE id = $1
        FOR UPDATE
    `, id)
	c, err := scanClaim(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get claim %d for update: %w", id, err)
	}
	return c, nil
}

// GetActiveClaimForUpdate - load and lock the offer's active claim, nil if none.
func (r *TxRepo) GetActiveClaimForUpdate(ctx context.Context, offerID int64) (*domain.Claim, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+claimColumns+`
        FROM claims
        WHERE offer_id = $1 AND status = $2
        FOR UPDATE
    `, offerID, string(domain.ClaimActive))
	c, err := scanClaim(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active claim for offer %d: %w", offerID, err)
	}
	return c, nil
}

// InsertClaim - insert a new claim.
func (r *TxRepo) InsertClaim(ctx context.Context, c *domain.Claim) error {
	var date *time.Time
	var start, end *int16
	if w := c.ConfirmedWindow; w != nil {
		d := w.Date.UTC().Truncate(24 * time.Hour)
		s, e := int16(w.Start), int16(w.End)
		date, start, end = &d, &s, &e
	}
	err := r.tx.QueryRow(ctx, `
        INSERT INTO claims (offer_id, receiver_id, status, claimed_at,
                            confirmed_date, confirmed_start, confirmed_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, c.OfferID, c.ReceiverID, string(c.Status), c.ClaimedAt, date, start, end).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// UpdateOfferStatus - move an offer between statuses; the update only applies
// while the current status still matches `from`.
func (r *TxRepo) UpdateOfferStatus(ctx context.Context, id int64, from, to domain.OfferStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE offers
        SET status = $3, updated_at = now()
        WHERE id = $1 AND status = $2
    `, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update offer %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("offer %d no longer in status %s", id, from)
	}
	return nil
}

// SetOfferPickupCode - store the verification code unless one is already set.
func (r *TxRepo) SetOfferPickupCode(ctx context.Context, id int64, code string) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE offers
        SET pickup_code = $2, updated_at = now()
        WHERE id = $1 AND pickup_code IS NULL
    `, id, code)
	if err != nil {
		return fmt.Errorf("set pickup code for offer %d: %w", id, err)
	}
	return nil
}

// UpdateClaimStatus - move a claim to a new status.
func (r *TxRepo) UpdateClaimStatus(ctx context.Context, id int64, status domain.ClaimStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE claims
        SET status = $2
        WHERE id = $1
    `, id, string(status))
	if err != nil {
		return fmt.Errorf("update claim %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("claim %d not found", id)
	}
	return nil
}

// RecordEvent - append a timeline event within the transaction.
func (r *TxRepo) RecordEvent(ctx context.Context, ev timeline.Event) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO timeline_events (offer_id, event_type, actor, old_status,
                                     new_status, details, visible_to_users)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, ev.OfferID, ev.EventType, ev.Actor, string(ev.OldStatus), string(ev.NewStatus),
		ev.Details, ev.VisibleToUsers)
	if err != nil {
		return fmt.Errorf("record timeline event %s: %w", ev.EventType, err)
	}
	return nil
}

var _ offertx.Repository = (*TxRepo)(nil)

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	var status string
	var code *string
	var date *time.Time
	var start, end *int16

	err := row.Scan(&o.ID, &o.DonorID, &o.Description, &o.Quantity, &o.ExpiryDate,
		&status, &date, &start, &end, &code, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OfferStatus(status)
	o.DefaultWindow = windowFromColumns(date, start, end)
	if code != nil {
		o.PickupCode = *code
	}
	return &o, nil
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var c domain.Claim
	var status string
	var date *time.Time
	var start, end *int16

	err := row.Scan(&c.ID, &c.OfferID, &c.ReceiverID, &status, &c.ClaimedAt,
		&date, &start, &end)
	if err != nil {
		return nil, err
	}
	c.Status = domain.ClaimStatus(status)
	c.ConfirmedWindow = windowFromColumns(date, start, end)
	return &c, nil
}

func windowFromColumns(date *time.Time, start, end *int16) *domain.PickupWindow {
	if date == nil || start == nil || end == nil {
		return nil
	}
	return &domain.PickupWindow{
		Date:  date.UTC(),
		Start: domain.TimeOfDay(*start),
		End:   domain.TimeOfDay(*end),
	}
}
