package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quantshared/internal/domain"
)

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, email, username, first_name, last_name, role, is_active, created_at, last_login_at`

// registerLockKey serialises registrations so only one can see an empty users table
const registerLockKey int64 = 0x75736572

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, account *domain.UserAccount) error {
	return insertAccount(ctx, r.db, account)
}

// Register creates a self-registered user, promoting the first one to ADMIN
func (r *UserRepositoryImpl) Register(ctx context.Context, account *domain.UserAccount) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registerLockKey); err != nil {
		return fmt.Errorf("failed to lock registrations: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check users: %w", err)
	}

	role := domain.RoleViewer
	if !exists {
		role = domain.RoleAdmin
	}
	stored := *account
	stored.Role = role

	if err := insertAccount(ctx, tx, &stored); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}

	account.Role = role
	return nil
}

func insertAccount(ctx context.Context, db execer, account *domain.UserAccount) error {
	query := `
		INSERT INTO users (
			id, email, username, first_name, last_name, role,
			is_active, created_at, last_login_at, password_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := db.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.FirstName,
		account.LastName,
		account.Role,
		account.IsActive,
		account.CreatedAt,
		account.LastLoginAt,
		account.PasswordHash,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getAccount(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	return r.getAccount(ctx, "email", email)
}

// GetByUsername retrieves a user by username
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	return r.getAccount(ctx, "username", username)
}

// column is one of the fixed names above, never user input
func (r *UserRepositoryImpl) getAccount(ctx context.Context, column, value string) (*domain.UserAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s, password_hash
		FROM users
		WHERE %s = $1
	`, userColumns, column)

	account := &domain.UserAccount{}
	err := r.db.QueryRow(ctx, query, value).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.FirstName,
		&account.LastName,
		&account.Role,
		&account.IsActive,
		&account.CreatedAt,
		&account.LastLoginAt,
		&account.PasswordHash,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	normalizeUserTimes(&account.User)
	return account, nil
}

// UpdateLastLogin records a successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List retrieves users ordered by creation time
func (r *UserRepositoryImpl) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, userColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Username,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.LastLoginAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		normalizeUserTimes(&user)
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Count counts all users
func (r *UserRepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func normalizeUserTimes(u *domain.User) {
	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastLoginAt != nil {
		t := u.LastLoginAt.UTC()
		u.LastLoginAt = &t
	}
}
