package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
)

const profileColumns = `id, user_id, business_id, first_name, last_name, role, created_at, updated_at`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.BusinessID, &p.FirstName, &p.LastName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return scanProfile(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

func (r *ProfileRepo) ListAdmins(ctx context.Context, businessID uuid.UUID) ([]models.Profile, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE business_id = $1 AND role = $2 ORDER BY created_at`,
		businessID, rbac.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *p)
	}
	return admins, rows.Err()
}
