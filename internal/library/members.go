package library

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libraryos/internal/membership"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Register creates a user account with a hashed password.
func (s *service) Register(ctx context.Context, email, password, name string, role membership.Role) (membership.User, error) {
	ctx, span := s.tracer.Start(ctx, "library.register",
		trace.WithAttributes(attribute.String("user.role", string(role))),
	)
	defer span.End()

	if !s.limiter.Allow(email) {
		return membership.User{}, ErrRateLimited
	}
	if !role.Valid() {
		return membership.User{}, ErrInvalidRole
	}

	id := s.newID()
	cred, err := membership.NewCredential(id, password)
	if err != nil {
		return membership.User{}, s.fail(span, err, "register")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.TrimSpace(email)
	if s.userByEmail(email) >= 0 {
		return membership.User{}, ErrEmailTaken
	}

	user := membership.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: s.now(),
	}
	users := append(slices.Clone(s.users), user)
	creds := append(slices.Clone(s.creds), cred)

	if err := s.commit(ctx, changeset{users: &users, creds: &creds}); err != nil {
		return membership.User{}, s.fail(span, err, "register")
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "role": role}).Info("user registered")
	return user, nil
}

// Authenticate verifies a user's credentials and returns the user if
// successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (membership.User, error) {
	_, span := s.tracer.Start(ctx, "library.authenticate")
	defer span.End()

	if !s.limiter.Allow(email) {
		return membership.User{}, ErrRateLimited
	}

	s.mu.RLock()
	i := s.userByEmail(strings.TrimSpace(email))
	var (
		user membership.User
		cred membership.Credential
		ok   bool
	)
	if i >= 0 {
		user = s.users[i]
		cred, ok = s.credential(user.ID)
	}
	s.mu.RUnlock()

	if !ok {
		return membership.User{}, ErrInvalidCredentials
	}
	match, err := cred.Matches(password)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("stored credential unreadable")
		return membership.User{}, ErrInvalidCredentials
	}
	if !match {
		return membership.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) userByEmail(email string) int {
	return slices.IndexFunc(s.users, func(u membership.User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (s *service) credential(userID string) (membership.Credential, bool) {
	for _, c := range s.creds {
		if c.UserID == userID {
			return c, true
		}
	}
	return membership.Credential{}, false
}
