package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/isdelr/inventory-tracker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Registration messages, reported together when several checks fail.
const (
	MsgUsernameTooShort = "Username must be at least 3 characters."
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgPasswordTooShort = "Password must be at least 6 characters."
	MsgPasswordMismatch = "Passwords do not match."
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// UserService provides account storage and credential checks.
type UserService struct {
	db         *sql.DB
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db, bcryptCost: bcrypt.DefaultCost, now: time.Now}
}

// Normalize trims the username and trims+lowercases the email.
func (in RegisterInput) Normalize() RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

// Validate returns every violated constraint at once, or nil. Lengths are
// counted in characters, not bytes.
func (in RegisterInput) Validate() *ValidationError {
	var msgs []string
	if utf8.RuneCountInString(in.Username) < 3 {
		msgs = append(msgs, MsgUsernameTooShort)
	}
	if !strings.Contains(in.Email, "@") {
		msgs = append(msgs, MsgInvalidEmail)
	}
	if utf8.RuneCountInString(in.Password) < 6 {
		msgs = append(msgs, MsgPasswordTooShort)
	}
	if in.Password != in.ConfirmPassword {
		msgs = append(msgs, MsgPasswordMismatch)
	}
	if len(msgs) == 0 {
		return nil
	}
	return newValidationError(msgs...)
}

// Register validates the form, rejects taken usernames/emails and stores the
// new account with a bcrypt hash of the password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in = in.Normalize()
	if verr := in.Validate(); verr != nil {
		return models.User{}, verr
	}

	if _, err := s.FindUserByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return models.User{}, ErrDuplicateIdentity
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.CreateUser(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
	})
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// CreateUser inserts a user row. PasswordHash must already be hashed.
func (s *UserService) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.CreatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateIdentity
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// FindUserByUsername retrieves a user by exact username, including the hash.
func (s *UserService) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username)
	return scanUser(row)
}

// GetUserByID retrieves a user by primary key, without the hash.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	user, err := s.FindUserByID(ctx, id)
	user.PasswordHash = ""
	return user, err
}

// FindUserByID retrieves a user by primary key, including the hash.
func (s *UserService) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id)
	return scanUser(row)
}

// FindUserByUsernameOrEmail returns any user holding either identifier.
func (s *UserService) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ? OR email = ? LIMIT 1",
		username, strings.ToLower(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
