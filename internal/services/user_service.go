package services

import (
	"context"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// UserService handles account administration. All operations are admin-only.
type UserService struct {
	storage *storage.SQLiteRepository
	cache   cache.Store
	logger  *log.Logger
}

func NewUserService(storage *storage.SQLiteRepository, cacheStore cache.Store, logger *log.Logger) *UserService {
	return &UserService{
		storage: storage,
		cache:   cacheStore,
		logger:  logger.WithComponent(log.ComponentUser),
	}
}

func (s *UserService) List(ctx context.Context, caller *auth.Identity, page, perPage int) ([]core.User, PageMeta, error) {
	if !auth.CanAct(caller, auth.ResourceUser, auth.ActionRead, 0) {
		return nil, PageMeta{}, core.ErrForbidden
	}

	page, perPage = clampPagination(page, perPage)
	users, total, err := s.storage.ListUsers(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return users, pageMeta(page, perPage, total), nil
}

func (s *UserService) UpdateRole(ctx context.Context, caller *auth.Identity, id int64, role core.Role) (core.User, error) {
	if !auth.CanAct(caller, auth.ResourceUser, auth.ActionUpdate, 0) {
		return core.User{}, core.ErrForbidden
	}
	if !role.IsValid() {
		return core.User{}, core.ErrInvalidRole
	}

	user, err := s.storage.UpdateUserRole(ctx, id, role)
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User role updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, id,
		log.FieldCallerID, caller.ID,
		"role", string(role))
	return user, nil
}

// Delete removes an account and its transactions, then drops the victim's
// analytics cache entry so no stale aggregate survives the account.
func (s *UserService) Delete(ctx context.Context, caller *auth.Identity, id int64) error {
	if !auth.CanAct(caller, auth.ResourceUser, auth.ActionDelete, 0) {
		return core.ErrForbidden
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.AnalyticsKey(id))

	s.logger.InfoContext(ctx, "User deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, id,
		log.FieldCallerID, caller.ID)
	return nil
}
