package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

const minPasswordLength = 8

type Options struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type Service struct {
	store Store
	log   *logger.Logger
	opts  Options
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger, opts Options) *Service {
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &Service{
		store: store,
		log:   log.With("component", "UserService"),
		opts:  opts,
		now:   time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid_email", "email must be a valid email")
	}
	return email, nil
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("invalid_name", "name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Validation("invalid_password", "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}

	now := s.now().UTC()
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperr.Conflict("email_taken", "Email already registered")
		}
		if errors.Is(err, ErrNameTaken) {
			return nil, apperr.Conflict("name_taken", "Name already registered")
		}
		return nil, apperr.From(err)
	}
	s.log.Info("user registered", "user_id", u.ID.Hex())
	return u, nil
}

// Login verifies the credentials and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	invalid := apperr.Unauthorized("Invalid email or password")

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", invalid
	}
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, "", invalid
	}
	if err != nil {
		return nil, "", apperr.From(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", invalid
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", apperr.Infrastructure(err)
	}
	return u, token, nil
}

func (s *Service) issueToken(u *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"userId": u.ID.Hex(),
		"email":  u.Email,
		"iat":    now.Unix(),
		"exp":    now.Add(s.opts.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}
