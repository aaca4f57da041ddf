package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/auth/domain"
	"github.com/smallbiznis/trashforcoin/internal/auth/password"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"github.com/smallbiznis/trashforcoin/internal/ratelimit"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionTokenBytes = 32

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Clock    clock.Clock
	GenID    *snowflake.Node
	Sessions domain.SessionRepository
	Users    userdomain.Repository
	Carts    cartsession.Store
	Limiter  *ratelimit.LoginLimiter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	cfg      config.Config
	sessions domain.SessionRepository
	users    userdomain.Repository
	carts    cartsession.Store
	limiter  *ratelimit.LoginLimiter
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		cfg:      p.Config,
		sessions: p.Sessions,
		users:    p.Users,
		carts:    p.Carts,
		limiter:  p.Limiter,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.limiter.Allow(ctx, email, req.IPAddress)
	if err != nil {
		s.log.Warn("login limiter unavailable", zap.Error(err))
	} else if !result.Allowed {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, db.Infra(err)
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.limiter.Reset(ctx, email, req.IPAddress); err != nil {
		s.log.Warn("login limiter reset failed", zap.Error(err))
	}
	if password.NeedsRehash(user.PasswordHash) {
		s.upgradePassword(ctx, user, req.Password)
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := &domain.Session{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, db.Infra(err)
	}

	s.log.Info("login",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role.String()),
		zap.String("session_id", session.ID.String()),
	)
	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

// upgradePassword replaces a legacy or weak stored password. Failure is logged and
// does not block the login.
func (s *Service) upgradePassword(ctx context.Context, user *userdomain.User, plain string) {
	hashed, err := password.Hash(plain)
	if err != nil {
		s.log.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hashed
	user.UpdatedAt = s.clock.Now().UTC()
	if err := s.users.Update(ctx, s.db, user); err != nil {
		s.log.Warn("password rehash not stored", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	s.log.Info("password upgraded to argon2id", zap.Int64("user_id", user.ID))
}

// Logout revokes the session and drops its cart session. An open cart order keeps
// its reserved lines; they stay editable through the order listing.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return db.Infra(err)
	}

	if err := s.sessions.RevokeSession(ctx, session.ID, s.clock.Now().UTC()); err != nil {
		return db.Infra(err)
	}
	if err := s.carts.Delete(ctx, session.ID.String()); err != nil {
		s.log.Warn("drop cart session failed", zap.String("session_id", session.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, db.Infra(err)
	}

	now := s.clock.Now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	// Role and store are read per request so administration changes apply at once.
	user, err := s.users.FindByID(ctx, s.db, session.UserID)
	if err != nil {
		return nil, db.Infra(err)
	}
	if user == nil {
		return nil, domain.ErrInvalidSession
	}

	return &domain.Identity{
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		Actor:     user.Actor(),
	}, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
