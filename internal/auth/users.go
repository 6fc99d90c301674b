package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a staff account: an admin, an employee who hosts visitors, or a
// member of security.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// Caller returns the identity used for authorization decisions.
func (u *User) Caller() Caller {
	return Caller{ID: u.ID, Role: u.Role}
}

// NewUser is the payload for creating an account.
type NewUser struct {
	Username   string
	Email      string
	Password   string
	Department string
	Role       Role
}

const userColumns = "id, username, email, department, role, created_at"

// UserStore manages user accounts in SQLite.
type UserStore struct {
	db   *sql.DB
	cost int
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, cost: bcrypt.DefaultCost}
}

// Register creates a user with a bcrypt-hashed password. An empty role
// defaults to employee.
func (s *UserStore) Register(ctx context.Context, in NewUser) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.TrimSpace(in.Department)
	if in.Role == "" {
		in.Role = RoleEmployee
	}

	switch {
	case in.Username == "":
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidUser)
	case in.Password == "":
		return nil, fmt.Errorf("%w: password is required", ErrInvalidUser)
	case !in.Role.IsValid():
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, department, role) VALUES (?, ?, ?, ?, ?)",
		in.Username, in.Email, string(hash), in.Department, in.Role,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, uniqueField(err))
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user ID: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Authenticate checks a username and password.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+", password_hash FROM users WHERE username = ?",
		strings.TrimSpace(username),
	).Scan(&u.ID, &u.Username, &u.Email, &u.Department, &u.Role, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// List returns all users ordered by username.
func (s *UserStore) List(ctx context.Context) (users []*User, err error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Department, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// GetByID returns a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Department, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// Exists reports whether a user ID exists.
func (s *UserStore) Exists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return count > 0, nil
}

// EmailOf returns the email address of a user.
func (s *UserStore) EmailOf(ctx context.Context, id int64) (string, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// EnsureAdmin creates the admin account if no user with that username
// exists. It reports whether a user was created.
func (s *UserStore) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count); err != nil {
		return false, fmt.Errorf("checking admin: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		return false, fmt.Errorf("%w: admin password is required to create %q", ErrInvalidUser, username)
	}

	_, err := s.Register(ctx, NewUser{
		Username:   username,
		Email:      email,
		Password:   password,
		Department: "Administration",
		Role:       RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func uniqueField(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return "username already exists"
	case strings.Contains(msg, "users.email"):
		return "email already exists"
	default:
		return "duplicate user"
	}
}
