package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const rolePrefix = "role:"

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor access.Actor, resource access.Resource, action access.Action) error {
	if !actor.Valid() {
		return access.ErrInvalidActor
	}
	resource = access.Resource(strings.TrimSpace(string(resource)))
	action = access.Action(strings.TrimSpace(string(action)))
	if resource == "" || action == "" {
		return access.ErrPermissionDenied
	}

	subject := fmt.Sprintf("user:%d", actor.UserID)
	if err := s.ensureGrouping(subject, roleSubject(actor.Role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, string(resource), string(action))
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.Int64("user_id", actor.UserID),
			zap.String("role", actor.Role.String()),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
		)
		s.auditDenied(ctx, actor, resource, action)
		return access.ErrPermissionDenied
	}
	return nil
}

// ensureGrouping keeps exactly one role link per user, following role changes.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor access.Actor, resource access.Resource, action access.Action) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    actor.StoreID,
		Action:     "authorization.denied",
		TargetType: "capability",
		TargetID:   string(resource),
		Metadata: map[string]any{
			"resource": string(resource),
			"action":   string(action),
			"role":     actor.Role.String(),
		},
	})
}

func roleSubject(role access.Role) string {
	return rolePrefix + role.String()
}

// seedPolicies makes the stored role policies match access.Capabilities, adding
// missing rules and dropping ones the table no longer grants.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	desired := map[string][]string{}
	for role, resources := range access.Capabilities() {
		for resource, actions := range resources {
			for _, action := range actions {
				rule := []string{roleSubject(role), string(resource), string(action)}
				desired[strings.Join(rule, "|")] = rule
			}
		}
	}

	existing, err := enforcer.GetPolicy()
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 3 || !strings.HasPrefix(rule[0], rolePrefix) {
			continue
		}
		key := strings.Join(rule[:3], "|")
		if _, ok := desired[key]; ok {
			delete(desired, key)
			continue
		}
		if _, err := enforcer.RemovePolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}

	for _, rule := range desired {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}
	return nil
}
