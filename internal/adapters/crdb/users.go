package crdb

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
)

func (r *Repository) InsertUser(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role, is_banned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Name, user.Email, string(user.Role), user.IsBanned, user.CreatedAt)
	return err
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, is_banned, created_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &role, &user.IsBanned, &user.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func (r *Repository) SaveUser(ctx context.Context, user *domain.User) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4, is_banned = $5 WHERE id = $1
	`, user.ID, user.Name, user.Email, string(user.Role), user.IsBanned)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context, f auction.UserFilter) ([]domain.User, int, error) {
	where := ""
	args := []interface{}{}
	if f.Search != "" {
		where = " WHERE name ILIKE $1 OR email ILIKE $1"
		args = append(args, "%"+f.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := `SELECT id, name, email, role, is_banned, created_at FROM users` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		var role string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &role, &user.IsBanned, &user.CreatedAt); err != nil {
			return nil, 0, err
		}
		user.Role = domain.Role(role)
		users = append(users, user)
	}
	return users, total, rows.Err()
}
