package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadops/timetable-backend/internal/models"
	"github.com/acadops/timetable-backend/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userCols = `id, username, email, hashed_password, full_name, role, is_active, is_superuser,
	faculty_id, student_id, reset_token, reset_token_expires_at, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.FullName, &u.Role,
		&u.IsActive, &u.IsSuperuser, &u.FacultyID, &u.StudentID,
		&u.ResetToken, &u.ResetTokenExpiresAt, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, repository.ErrNotFound
	}
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, hashed_password, full_name, role, is_active, is_superuser, faculty_id, student_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+userCols,
		u.Username, u.Email, u.HashedPassword, u.FullName, u.Role,
		u.IsActive, u.IsSuperuser, u.FacultyID, u.StudentID,
	))
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
}

func (r *usersRepo) GetByResetToken(ctx context.Context, token string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE reset_token=$1`, token))
}

func (r *usersRepo) List(ctx context.Context, f repository.UserFilter, skip, limit int) ([]models.User, int64, error) {
	where, args := userConditions(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, userCols, where, n+1, n+2),
		append(args, limit, skip)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func userConditions(f repository.UserFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Role != nil {
		args = append(args, *f.Role)
		conds = append(conds, fmt.Sprintf("role=$%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}

func (r *usersRepo) Update(ctx context.Context, u models.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email=$2, hashed_password=$3, full_name=$4, role=$5, is_active=$6,
		        faculty_id=$7, student_id=$8, reset_token=$9, reset_token_expires_at=$10,
		        last_login=$11, updated_at=now()
		  WHERE id=$1`,
		u.ID, u.Email, u.HashedPassword, u.FullName, u.Role, u.IsActive,
		u.FacultyID, u.StudentID, u.ResetToken, u.ResetTokenExpiresAt, u.LastLogin,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
