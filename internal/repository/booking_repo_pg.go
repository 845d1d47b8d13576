package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookingRepository interface {
	List(ctx context.Context) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	AssignPartner(ctx context.Context, bookingID, partnerID string, at time.Time) error
	SetDocumentStatus(ctx context.Context, bookingID, docType string, status domain.DocumentStatus, reviewer string, at time.Time) error
	MarkConfirmed(ctx context.Context, bookingID string, at time.Time) error
	FindInconsistencies(ctx context.Context) ([]domain.Inconsistency, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, location, status, partner_id, created_at, updated_at, confirmed_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.Location, &b.Status, &b.PartnerID, &b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt)
	return b, err
}

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	ids := make([]string, len(bookings))
	for i := range bookings {
		ids[i] = bookings[i].ID
	}
	docs, err := r.documents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Documents = docs[bookings[i].ID]
		if bookings[i].Documents == nil {
			bookings[i].Documents = []domain.Document{}
		}
	}
	return bookings, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}

	docs, err := r.documents(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	b.Documents = docs[id]
	if b.Documents == nil {
		b.Documents = []domain.Document{}
	}
	return &b, nil
}

func (r *PGBookingRepository) documents(ctx context.Context, bookingIDs []string) (map[string][]domain.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT booking_id, doc_type, doc_link, status, reviewed_at, reviewed_by
		FROM booking_documents WHERE booking_id = ANY($1) ORDER BY booking_id, position`, bookingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make(map[string][]domain.Document, len(bookingIDs))
	for rows.Next() {
		var bookingID string
		var d domain.Document
		if err := rows.Scan(&bookingID, &d.DocType, &d.DocLink, &d.Status, &d.ReviewedAt, &d.ReviewedBy); err != nil {
			return nil, err
		}
		docs[bookingID] = append(docs[bookingID], d)
	}
	return docs, rows.Err()
}

// AssignPartner writes both sides of an assignment in one transaction. The
// WHERE clauses re-check the preconditions, so a partner claimed by another
// booking in the meantime rolls the whole assignment back.
func (r *PGBookingRepository) AssignPartner(ctx context.Context, bookingID, partnerID string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE bookings SET partner_id=$2, status=$3, updated_at=$4
		WHERE id=$1 AND status=$5 AND partner_id IS NULL`,
		bookingID, partnerID, domain.BookingStatusAssigned, at, domain.BookingStatusPending)
	if err != nil {
		return fmt.Errorf("assign booking %s: %w", bookingID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyAssigned
	}

	cmd, err = tx.Exec(ctx, `UPDATE partners SET status=$2, last_active_at=$3 WHERE id=$1 AND status=$4`,
		partnerID, domain.PartnerStatusBusy, at, domain.PartnerStatusOnline)
	if err != nil {
		return fmt.Errorf("mark partner %s busy: %w", partnerID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPartnerUnavailable
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) SetDocumentStatus(ctx context.Context, bookingID, docType string, status domain.DocumentStatus, reviewer string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE booking_documents SET status=$3, reviewed_at=$4, reviewed_by=$5
		WHERE booking_id=$1 AND doc_type=$2`, bookingID, docType, status, at, reviewer)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET updated_at=$2 WHERE id=$1`, bookingID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MarkConfirmed only succeeds while the booking is still ASSIGNED with a
// partner and no unapproved document. When the guard rejects the update the
// booking is re-read so the caller gets the precondition that failed.
func (r *PGBookingRepository) MarkConfirmed(ctx context.Context, bookingID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET status=$2, confirmed_at=$3, updated_at=$3
		WHERE id=$1 AND status=$4 AND partner_id IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM booking_documents d WHERE d.booking_id=$1 AND d.status <> $5)`,
		bookingID, domain.BookingStatusConfirmed, at, domain.BookingStatusAssigned, domain.DocumentStatusApproved)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.confirmRejection(ctx, bookingID)
	}
	return nil
}

func (r *PGBookingRepository) confirmRejection(ctx context.Context, bookingID string) error {
	b, err := r.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := b.ConfirmError(); err != nil {
		return err
	}
	return domain.ErrInvalidState
}

func (r *PGBookingRepository) FindInconsistencies(ctx context.Context) ([]domain.Inconsistency, error) {
	rows, err := r.db.Query(ctx, `
		SELECT $1::text, p.id, ''
		FROM partners p
		WHERE p.status = 'busy'
		  AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.partner_id = p.id AND b.status IN ('ASSIGNED', 'CONFIRMED'))
		UNION ALL
		SELECT $2::text, b.partner_id, b.id
		FROM bookings b JOIN partners p ON p.id = b.partner_id
		WHERE b.status = 'ASSIGNED' AND p.status <> 'busy'`,
		domain.InconsistencyBusyWithoutBooking, domain.InconsistencyAssignedPartnerNotBusy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []domain.Inconsistency
	for rows.Next() {
		var inc domain.Inconsistency
		if err := rows.Scan(&inc.Kind, &inc.PartnerID, &inc.BookingID); err != nil {
			return nil, err
		}
		found = append(found, inc)
	}
	return found, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
