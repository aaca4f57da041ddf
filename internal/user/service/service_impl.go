package service

import (
	"context"
	"net/mail"
	"strconv"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"github.com/smallbiznis/trashforcoin/internal/auth/password"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/user/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, actor access.Actor, req domain.CreateRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	store, err := access.CanCreateUser(actor, role, req.StoreID)
	if err != nil {
		return nil, err
	}
	if err := requireStore(role, store); err != nil {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureStore(ctx, tx, store); err != nil {
			return err
		}
		if err := s.ensureEmailFree(ctx, tx, email, 0); err != nil {
			return err
		}

		now := s.clock.Now()
		user = &domain.User{
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Email:        email,
			PasswordHash: hashed,
			Role:         role,
			StoreID:      store,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return db.Infra(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, "user.create", map[string]any{"role": user.Role.String()})
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, req domain.UpdateRequest) (*domain.User, error) {
	var newRole access.Role
	if req.Role != nil {
		role, err := access.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		newRole = role
	}

	var user *domain.User
	changes := map[string]any{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.lock(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		role, store, err := access.CanEditUser(actor, target.Account(), newRole, target.StoreID)
		if err != nil {
			return err
		}
		if err := requireStore(role, store); err != nil {
			return err
		}
		if target.Role == access.RoleRootAdmin && role != access.RoleRootAdmin {
			if err := s.keepRootAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if role != target.Role {
			changes["role"] = role.String()
		}
		target.Role = role
		target.StoreID = store

		if req.FirstName != nil {
			target.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			target.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			if email != target.Email {
				if err := s.ensureEmailFree(ctx, tx, email, target.ID); err != nil {
					return err
				}
				target.Email = email
				changes["email"] = email
			}
		}
		if req.Password != nil {
			if len(*req.Password) < minPasswordLength {
				return domain.ErrInvalidPassword
			}
			hashed, err := password.Hash(*req.Password)
			if err != nil {
				return err
			}
			target.PasswordHash = hashed
			changes["password"] = "changed"
		}

		target.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, target); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return db.Infra(err)
		}
		user = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, "user.update", changes)
	return user, nil
}

func (s *Service) AssignStore(ctx context.Context, actor access.Actor, req domain.AssignStoreRequest) (*domain.User, error) {
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.lock(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if err := access.CanAssignStore(actor, target.Account(), req.StoreID); err != nil {
			return err
		}
		if err := requireStore(target.Role, req.StoreID); err != nil {
			return err
		}
		if err := s.ensureStore(ctx, tx, req.StoreID); err != nil {
			return err
		}

		target.StoreID = copyStore(req.StoreID)
		target.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, target); err != nil {
			return db.Infra(err)
		}
		user = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, "user.assign_store", map[string]any{"store_id": user.StoreID})
	return user, nil
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	var deleted *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := access.CanDeleteUser(actor, target.Account()); err != nil {
			return err
		}
		if target.Role == access.RoleRootAdmin {
			if err := s.keepRootAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := s.repo.Delete(ctx, tx, target.ID); err != nil {
			return db.Infra(err)
		}
		deleted = target
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, deleted, "user.delete", nil)
	return nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*domain.User, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if user.ID != actor.UserID && !access.ScopeFor(actor, access.ResourceUser).Allows(user.StoreID, "") {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !actor.Valid() {
		return domain.ListResponse{}, access.ErrInvalidActor
	}
	filter := domain.ListFilter{
		Scope:  access.ScopeFor(actor, access.ResourceUser).Narrow(req.StoreID),
		Search: req.Search,
		Page:   req.Pagination.Normalize(),
	}
	if strings.TrimSpace(req.Role) != "" {
		role, err := access.ParseRole(req.Role)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Role = role
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, db.Infra(err)
	}
	if items == nil {
		items = []domain.User{}
	}
	return domain.ListResponse{
		Users:    items,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

// ChangePassword lets any account rotate its own password.
func (s *Service) ChangePassword(ctx context.Context, actor access.Actor, req domain.ChangePasswordRequest) error {
	if !actor.Valid() {
		return access.ErrInvalidActor
	}
	if len(req.NewPassword) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lock(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		if !password.Verify(req.CurrentPassword, current.PasswordHash) {
			return domain.ErrWrongPassword
		}
		hashed, err := password.Hash(req.NewPassword)
		if err != nil {
			return err
		}
		current.PasswordHash = hashed
		current.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return db.Infra(err)
		}
		user = current
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, user, "user.change_password", nil)
	return nil
}

func (s *Service) Bootstrap(ctx context.Context, email, secret string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(secret) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}

	var user *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roots, err := s.repo.LockRole(ctx, tx, access.RoleRootAdmin)
		if err != nil {
			return db.Infra(err)
		}
		if len(roots) > 0 {
			return nil
		}
		if err := s.ensureEmailFree(ctx, tx, email, 0); err != nil {
			return err
		}

		hashed, err := password.Hash(secret)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		user = &domain.User{
			Email:        email,
			PasswordHash: hashed,
			Role:         access.RoleRootAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(ctx, tx, user); err != nil {
			return db.Infra(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if user != nil {
		s.log.Info("bootstrapped root admin", zap.Int64("user_id", user.ID))
	}
	return user, nil
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	user, err := s.repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// keepRootAdmin fails when the root_admin about to lose the role is the last one.
func (s *Service) keepRootAdmin(ctx context.Context, tx *gorm.DB) error {
	roots, err := s.repo.LockRole(ctx, tx, access.RoleRootAdmin)
	if err != nil {
		return db.Infra(err)
	}
	if len(roots) <= 1 {
		return domain.ErrLastRootAdmin
	}
	return nil
}

func (s *Service) ensureStore(ctx context.Context, tx *gorm.DB, store *int64) error {
	if store == nil {
		return nil
	}
	ok, err := s.repo.StoreExists(ctx, tx, *store)
	if err != nil {
		return db.Infra(err)
	}
	if !ok {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, tx *gorm.DB, email string, selfID int64) error {
	existing, err := s.repo.FindByEmail(ctx, tx, email)
	if err != nil {
		return db.Infra(err)
	}
	if existing != nil && existing.ID != selfID {
		return domain.ErrEmailTaken
	}
	return nil
}

func (s *Service) audit(ctx context.Context, user *domain.User, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["email"] = user.Email
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    user.StoreID,
		Action:     action,
		TargetType: "user",
		TargetID:   strconv.FormatInt(user.ID, 10),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// requireStore enforces that only global roles may exist without a store.
func requireStore(role access.Role, store *int64) error {
	if store != nil {
		return nil
	}
	switch role {
	case access.RoleRootAdmin, access.RoleAdministrator, access.RoleViewer:
		return nil
	default:
		return domain.ErrStoreRequired
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func copyStore(store *int64) *int64 {
	if store == nil {
		return nil
	}
	value := *store
	return &value
}
