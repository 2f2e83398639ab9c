package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=users_test

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrWrongCredentials = errors.New("wrong credentials")
)

const minPasswordLength = 6

type usersRepo interface {
	Create(ctx context.Context, user *User) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
}

type sessions interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type Service struct {
	repo           usersRepo
	sessions       sessions
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(repo usersRepo, sessions sessions, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		sessions:       sessions,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (s *Service) Register(ctx context.Context, reg Registration) (_ *AuthResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" {
		return nil, fmt.Errorf("%w: name empty", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return nil, fmt.Errorf("%w: email [%s]", ErrInvalidInput, reg.Email)
	}
	if len(reg.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password shorter than %d", ErrInvalidInput, minPasswordLength)
	}
	if reg.DailyGoal < 0 {
		return nil, fmt.Errorf("%w: negative daily goal", ErrInvalidInput)
	}

	passwordHash, err := pkg.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: passwordHash,
		DailyGoal:    reg.DailyGoal,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	token, err := s.sessions.Login(ctx, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s.metricsManager.CounterRegistrations.Inc()
	log.Infof("new user registered: %d", user.ID)

	return &AuthResponse{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, creds Credentials) (_ *AuthResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email or password empty", ErrInvalidInput)
	}

	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		s.metricsManager.CounterLogins.WithLabelValues("unknown_user").Inc()
		return nil, ErrWrongCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		s.metricsManager.CounterLogins.WithLabelValues("wrong_password").Inc()
		log.Tracef("failed login attempt for user: %d", user.ID)
		return nil, ErrWrongCredentials
	}

	token, err := s.sessions.Login(ctx, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s.metricsManager.CounterLogins.WithLabelValues("ok").Inc()
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.logout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	loggedOut, err := s.sessions.Logout(ctx, token)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if !loggedOut {
		log.Debugln("logout for an already closed session")
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.profile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.Get(ctx, userID)
}

// UpdateProfile applies the set fields. A new daily goal does not touch
// existing entries, their goalMet is re-derived only when they are saved again.
func (s *Service) UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.updateProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name empty", ErrInvalidInput)
		}
		user.Name = name
	}
	if update.DailyGoal != nil {
		if *update.DailyGoal < 0 {
			return nil, fmt.Errorf("%w: negative daily goal", ErrInvalidInput)
		}
		user.DailyGoal = *update.DailyGoal
	}
	if update.Timezone != nil {
		tz := strings.TrimSpace(*update.Timezone)
		if tz != "" && !days.ValidZone(tz) {
			return nil, fmt.Errorf("%w: unknown timezone [%s]", ErrInvalidInput, tz)
		}
		user.Timezone = tz
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}
