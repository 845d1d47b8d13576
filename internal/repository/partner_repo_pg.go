package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PartnerRepository interface {
	List(ctx context.Context) ([]domain.Partner, error)
	GetByID(ctx context.Context, id string) (*domain.Partner, error)
	UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error
	Release(ctx context.Context, id string, at time.Time) (bool, error)
}

type PGPartnerRepository struct {
	db DB
}

func NewPartnerRepository(db DB) PartnerRepository {
	return &PGPartnerRepository{db: db}
}

const partnerColumns = `id, name, city, status, lat, lng, location_updated_at, last_active_at, created_at`

func scanPartner(row pgx.Row) (domain.Partner, error) {
	var p domain.Partner
	var lat, lng *float64
	var locAt *time.Time
	if err := row.Scan(&p.ID, &p.Name, &p.City, &p.Status, &lat, &lng, &locAt, &p.LastActiveAt, &p.CreatedAt); err != nil {
		return p, err
	}
	if lat != nil && lng != nil {
		p.Location = &domain.Location{Lat: *lat, Lng: *lng}
		if locAt != nil {
			p.Location.UpdatedAt = *locAt
		}
	}
	return p, nil
}

func (r *PGPartnerRepository) List(ctx context.Context) ([]domain.Partner, error) {
	rows, err := r.db.Query(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY last_active_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := make([]domain.Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (r *PGPartnerRepository) GetByID(ctx context.Context, id string) (*domain.Partner, error) {
	p, err := scanPartner(r.db.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPartnerRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE partners SET lat=$2, lng=$3, location_updated_at=$4 WHERE id=$1`, id, lat, lng, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

// Release moves a busy partner back online unless it still holds an
// ASSIGNED booking. Reports whether a row changed.
func (r *PGPartnerRepository) Release(ctx context.Context, id string, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE partners SET status=$2, last_active_at=$3
		WHERE id=$1 AND status=$4
		AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.partner_id=$1 AND b.status=$5)`,
		id, domain.PartnerStatusOnline, at, domain.PartnerStatusBusy, domain.BookingStatusAssigned)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

var _ PartnerRepository = (*PGPartnerRepository)(nil)
