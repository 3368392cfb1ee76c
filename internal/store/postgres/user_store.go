package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valoriste/valoriste/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL with sizes and
// preferences stored as JSONB.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var sizes, prefs []byte
	if err := row.Scan(&u.ID, &u.Name, &u.Gender, &sizes, &prefs); err != nil {
		return domain.User{}, err
	}
	if err := json.Unmarshal(sizes, &u.Sizes); err != nil {
		return domain.User{}, fmt.Errorf("decode sizes: %w", err)
	}
	if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
		return domain.User{}, fmt.Errorf("decode preferences: %w", err)
	}
	return u, nil
}

// Get returns the user with the given ID, or domain.ErrNotFound.
func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, name, gender, sizes, preferences FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", id, err)
	}
	return u, nil
}

// List returns all users ordered by ID.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT id, name, gender, sizes, preferences FROM users ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Upsert inserts or replaces a user profile.
func (s *UserStore) Upsert(ctx context.Context, user domain.User) error {
	sizes, err := json.Marshal(user.Sizes)
	if err != nil {
		return fmt.Errorf("postgres: encode sizes: %w", err)
	}
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return fmt.Errorf("postgres: encode preferences: %w", err)
	}

	const query = `
		INSERT INTO users (id, name, gender, sizes, preferences, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			sizes = EXCLUDED.sizes,
			preferences = EXCLUDED.preferences,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, user.ID, user.Name, user.Gender, sizes, prefs); err != nil {
		return fmt.Errorf("postgres: upsert user %s: %w", user.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
