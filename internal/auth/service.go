package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/validation"
)

const bearerScheme = "Bearer"

type registerInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      core.PublicUser
}

// Service registers users, exchanges credentials for tokens and resolves
// bearer headers back to user ids.
type Service struct {
	users  ports.UserStore
	tokens *TokenManager
	cost   int
	logger *log.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users ports.UserStore, tokens *TokenManager, cost int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   cost,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (core.PublicUser, error) {
	in := registerInput{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(in); err != nil {
		return core.PublicUser{}, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return core.PublicUser{}, core.ErrDuplicateUser
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return core.PublicUser{}, err
	}

	user, err := s.users.CreateUser(ctx, core.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateUser) {
			return core.PublicUser{}, err
		}
		return core.PublicUser{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, user.ID)

	return user.Public(), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(in); err != nil {
		return LoginResult{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, core.ErrNotFound) {
		// Spend a comparison anyway so unknown emails are not faster.
		_ = CheckPassword(s.fallbackHash(), in.Password)
		s.logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			"reason", "unknown_email")
		return LoginResult{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := CheckPassword(user.PasswordHash, in.Password); err != nil {
		s.logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldUserID, user.ID,
			"reason", "password_mismatch")
		return LoginResult{}, core.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID)

	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// Authenticate resolves an Authorization header value to a user id.
func (s *Service) Authenticate(ctx context.Context, header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return "", core.ErrMissingToken
	}
	if !strings.EqualFold(fields[0], bearerScheme) || len(fields) > 2 {
		return "", core.ErrInvalidToken
	}

	claims, err := s.tokens.Validate(fields[1])
	if err != nil {
		s.logger.DebugContext(ctx, "Token rejected",
			log.FieldOperation, log.OpAuthenticate,
			log.FieldError, err.Error())
		return "", core.ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword(uuid.New().String(), s.cost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
