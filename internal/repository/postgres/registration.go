package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/person-registry/internal/domain"
	"github.com/ignite/person-registry/internal/service/registration"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a duplicate key.
const uniqueViolation = "23505"

// RegistrationRepo implements registration.Repository against PostgreSQL.
// Each operation checks out its own connection, provisions the schema on it
// and releases it before returning.
type RegistrationRepo struct{ db *sql.DB }

// NewRegistrationRepo creates a Postgres-backed registration repository.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func (r *RegistrationRepo) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := EnsureSchema(ctx, conn); err != nil {
		return err
	}
	return fn(conn)
}

func (r *RegistrationRepo) Create(ctx context.Context, p *domain.PersonRegistration) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
			INSERT INTO person_registrations (name, birth_date, cpf, email, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.Name, p.BirthDate, p.CPF, p.Email, p.Description, p.CreatedAt).Scan(&p.ID)
		if err != nil {
			return translate("create registration", err)
		}
		return nil
	})
}

func (r *RegistrationRepo) List(ctx context.Context) ([]domain.PersonRegistration, error) {
	out := []domain.PersonRegistration{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id, name, birth_date, cpf, email, description, created_at
			FROM person_registrations
			ORDER BY created_at DESC, id DESC
		`)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanRegistration(rows)
			if err != nil {
				return err
			}
			out = append(out, *p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RegistrationRepo) Get(ctx context.Context, id int64) (*domain.PersonRegistration, error) {
	var p *domain.PersonRegistration
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, name, birth_date, cpf, email, description, created_at
			FROM person_registrations
			WHERE id = $1
		`, id)
		var err error
		p, err = scanRegistration(row)
		if errors.Is(err, sql.ErrNoRows) {
			return registration.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *RegistrationRepo) Update(ctx context.Context, p *domain.PersonRegistration) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE person_registrations
			SET name = $1, birth_date = $2, cpf = $3, email = $4, description = $5
			WHERE id = $6
		`, p.Name, p.BirthDate, p.CPF, p.Email, p.Description, p.ID)
		if err != nil {
			return translate("update registration", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return registration.ErrNotFound
		}
		return nil
	})
}

func (r *RegistrationRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM person_registrations WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete registration: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	return removed, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.PersonRegistration, error) {
	var (
		p           domain.PersonRegistration
		description sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.CPF, &p.Email, &description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if description.Valid {
		p.Description = &description.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// translate maps a duplicate-key error to registration.ErrConflict and wraps
// everything else with op.
func translate(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w (%s)", registration.ErrConflict, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}
