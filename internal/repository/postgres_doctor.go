package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

type PostgresDoctorRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDoctorRepository(db *pgxpool.Pool) *PostgresDoctorRepository {
	return &PostgresDoctorRepository{
		db: db,
	}
}

func (p *PostgresDoctorRepository) GetById(ctx context.Context, id int) (*domain.Doctor, error) {
	query := `SELECT id, first_name, last_name, specialization FROM doctors WHERE id = $1`

	var doctor domain.Doctor

	err := p.db.QueryRow(ctx, query, id).Scan(
		&doctor.ID,
		&doctor.FirstName,
		&doctor.LastName,
		&doctor.Specialization,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &doctor, nil
}
