package credentials

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/labkeeper/internal/audit"
	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/dmitrijs2005/labkeeper/internal/metrics"
	"github.com/dmitrijs2005/labkeeper/internal/validation"
)

const (
	MinPasswordLength = 6
	tempPasswordBytes = 6
)

// Account is the public view of a credential.
type Account struct {
	Username string
	Name     string
	Role     auth.Role
}

type UpsertRequest struct {
	Username string    `validate:"required"`
	Password string    `validate:"required"`
	Role     auth.Role `validate:"required,oneof=admin recepcion lab medico"`
	Name     string
}

type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger logging.Logger
	mu     sync.Mutex
}

func NewService(repo Repository, recorder audit.Recorder, logger logging.Logger) *Service {
	return &Service{repo: repo, audit: recorder, logger: logger}
}

// Bootstrap creates an admin account when the users file is missing or
// blank. A file that has content but no readable account is left alone.
// It reports whether an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(t) > 0 {
		return false, nil
	}

	stored, err := s.repo.Stored(ctx)
	if err != nil {
		return false, err
	}
	if stored {
		s.logger.Warn(ctx, "users file has content but no readable account, bootstrap skipped", "username", username)
		return false, nil
	}

	t[username] = NewCredential(password, auth.RoleAdmin)
	if err := s.repo.Save(ctx, t); err != nil {
		return false, err
	}

	s.logger.Warn(ctx, "bootstrap admin account created, change its password", "username", username)
	return true, nil
}

// Login verifies username and password and returns the identity to start a
// session with. Failures are reported as common.ErrorUnauthorized.
func (s *Service) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	username = strings.TrimSpace(username)

	t, err := s.repo.Load(ctx)
	if err != nil {
		return auth.Identity{}, err
	}

	if !VerifyLogin(username, password, t) {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		s.logger.Warn(ctx, "login failed", "username", username)
		s.record(ctx, audit.ActionLoginFailed, username, "")
		return auth.Identity{}, common.ErrorUnauthorized
	}

	id := auth.Identity{Username: username, Role: t[username].Role}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info(ctx, "login", "username", username, "role", id.Role)
	s.record(auth.WithIdentity(ctx, id), audit.ActionLogin, username, string(id.Role))
	return id, nil
}

func (s *Service) Get(ctx context.Context, username string) (Account, error) {
	t, err := s.repo.Load(ctx)
	if err != nil {
		return Account{}, err
	}
	c, ok := t[username]
	if !ok {
		return Account{}, common.ErrorNotFound
	}
	return Account{Username: username, Name: c.Name, Role: c.Role}, nil
}

// List returns every account sorted by username.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	t, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Account, 0, len(t))
	for u, c := range t {
		out = append(out, Account{Username: u, Name: c.Name, Role: c.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Upsert creates or replaces an account. An empty Name keeps the name
// already on file.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	c := NewCredential(req.Password, req.Role)
	c.Name = req.Name
	if c.Name == "" {
		c.Name = t[req.Username].Name
	}
	t[req.Username] = c

	if err := s.repo.Save(ctx, t); err != nil {
		return err
	}

	s.logger.Info(ctx, "user saved", "username", req.Username, "role", req.Role)
	s.record(ctx, audit.ActionUserUpserted, req.Username, string(req.Role))
	return nil
}

// SetPassword replaces username's password, keeping role and name.
func (s *Service) SetPassword(ctx context.Context, username, password, confirm string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", common.ErrPasswordTooShort, MinPasswordLength)
	}
	if password != confirm {
		return common.ErrPasswordMismatch
	}

	if err := s.replacePassword(ctx, username, password); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "username", username)
	s.record(ctx, audit.ActionPasswordSet, username, "")
	return nil
}

// ResetTemporaryPassword assigns a random password to username and returns
// it. The value is not stored anywhere else.
func (s *Service) ResetTemporaryPassword(ctx context.Context, username string) (string, error) {
	tmp, err := common.MakeRandURLSafeString(tempPasswordBytes)
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}

	if err := s.replacePassword(ctx, username, tmp); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "temporary password issued", "username", username)
	s.record(ctx, audit.ActionPasswordReset, username, "")
	return tmp, nil
}

// Delete removes username. An actor cannot delete their own account.
func (s *Service) Delete(ctx context.Context, actor, username string) error {
	if actor == username {
		return common.ErrSelfDelete
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := t[username]; !ok {
		return common.ErrorNotFound
	}
	delete(t, username)

	if err := s.repo.Save(ctx, t); err != nil {
		return err
	}

	s.logger.Info(ctx, "user deleted", "username", username, "actor", actor)
	s.record(ctx, audit.ActionUserDeleted, username, "")
	return nil
}

func (s *Service) replacePassword(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	old, ok := t[username]
	if !ok {
		return common.ErrorNotFound
	}

	c := NewCredential(password, old.Role)
	c.Name = old.Name
	t[username] = c

	return s.repo.Save(ctx, t)
}

func (s *Service) record(ctx context.Context, action, subject, detail string) {
	if err := s.audit.Record(ctx, action, subject, detail); err != nil {
		s.logger.Warn(ctx, "audit event dropped", "action", action, "error", err)
	}
}
