// Package usecase implements the role graph: permission resolution through role
// inheritance, role administration and the role assignment lifecycle.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// RoleRepository defines persistence operations for roles and their permission entries.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Role, error)
	ListAll(ctx context.Context) ([]*domain.Role, error)
	ListRolePermissions(ctx context.Context, roleIDs ...uuid.UUID) ([]*domain.RolePermission, error)
	SetRolePermission(ctx context.Context, entry *domain.RolePermission) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
}

// PermissionRepository defines persistence operations for permissions and direct user entries.
type PermissionRepository interface {
	Create(ctx context.Context, permission *domain.Permission) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error)
	GetByKey(ctx context.Context, key domain.PermissionKey) (*domain.Permission, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Permission, error)
	ListUserPermissions(ctx context.Context, userID uuid.UUID) ([]*domain.UserPermission, error)
	SetUserPermission(ctx context.Context, entry *domain.UserPermission) error
	RemoveUserPermission(ctx context.Context, userID, permissionID uuid.UUID) error
}

// AssignmentRepository defines persistence operations for role assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.RoleAssignment) error
	Update(ctx context.Context, assignment *domain.RoleAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RoleAssignment, error)
	GetByUserAndRole(ctx context.Context, userID, roleID uuid.UUID) (*domain.RoleAssignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RoleAssignment, error)
	List(
		ctx context.Context,
		filter domain.AssignmentFilter,
		offset, limit int,
	) ([]*domain.RoleAssignment, error)
	ListExpiring(ctx context.Context, now time.Time, limit int) ([]*domain.RoleAssignment, error)
	ListDueForReview(ctx context.Context, cutoff time.Time, limit int) ([]*domain.RoleAssignment, error)
}

// UserRepository is the slice of principal persistence the role graph needs.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	ClearPrimaryRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
}

// PermissionCache briefly holds resolved permission sets. Invalidate must be called
// after every role, permission or assignment write.
type PermissionCache interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.PermissionSet, bool, error)
	Set(ctx context.Context, userID uuid.UUID, set domain.PermissionSet) error
	Invalidate(ctx context.Context) error
}

// RoleGraph resolves effective permissions.
type RoleGraph interface {
	// GetRolePermissions walks the parent chain of a role and returns its own entries,
	// the entries it inherits and their deny-overrides merge.
	GetRolePermissions(ctx context.Context, roleID uuid.UUID) (*domain.RolePermissions, error)

	// GetUserPermissions merges, in increasing precedence, inherited role entries, the
	// primary role's own entries, entries from effective assignments and non-expired
	// direct user entries. A denial at any level poisons the key.
	GetUserPermissions(ctx context.Context, user *userDomain.User) (domain.PermissionSet, error)

	// GetUserPermissionsByID loads the principal and resolves its permissions.
	GetUserPermissionsByID(ctx context.Context, userID uuid.UUID) (domain.PermissionSet, error)

	// UserHasPermission reports whether the user may perform action on resource. The
	// bypass role is always allowed.
	UserHasPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

// RoleUseCase defines role and permission administration. Every mutation emits one
// audit record and invalidates the permission cache.
type RoleUseCase interface {
	CreateRole(ctx context.Context, input *domain.RoleInput) (*domain.Role, error)
	UpdateRole(ctx context.Context, roleID uuid.UUID, input *domain.RoleInput) (*domain.Role, error)
	DeleteRole(ctx context.Context, roleID uuid.UUID) error
	GetRole(ctx context.Context, roleID uuid.UUID) (*domain.Role, error)
	ListRoles(ctx context.Context, offset, limit int) ([]*domain.Role, error)

	CreatePermission(ctx context.Context, key domain.PermissionKey, description string) (*domain.Permission, error)
	ListPermissions(ctx context.Context, offset, limit int) ([]*domain.Permission, error)

	// SetRolePermission grants or denies a capability on a role. The permission is
	// registered on first use.
	SetRolePermission(
		ctx context.Context,
		roleID uuid.UUID,
		key domain.PermissionKey,
		granted bool,
		conditions map[string]any,
	) (*domain.RolePermission, error)
	RemoveRolePermission(ctx context.Context, roleID uuid.UUID, key domain.PermissionKey) error

	// SetUserPermission grants or denies a capability directly on a principal.
	SetUserPermission(
		ctx context.Context,
		userID uuid.UUID,
		key domain.PermissionKey,
		granted bool,
		expiresAt *time.Time,
	) (*domain.UserPermission, error)
	RemoveUserPermission(ctx context.Context, userID uuid.UUID, key domain.PermissionKey) error
}

// AssignmentUseCase defines the role assignment lifecycle.
type AssignmentUseCase interface {
	// Assign links a principal to a role. An existing non-active row for the same pair
	// is moved back to ACTIVE.
	Assign(ctx context.Context, input *domain.AssignRoleInput) (*domain.RoleAssignment, error)

	// Revoke moves an ACTIVE assignment to REVOKED.
	Revoke(ctx context.Context, assignmentID uuid.UUID, reason string) (*domain.RoleAssignment, error)

	Get(ctx context.Context, assignmentID uuid.UUID) (*domain.RoleAssignment, error)
	List(
		ctx context.Context,
		filter domain.AssignmentFilter,
		offset, limit int,
	) ([]*domain.RoleAssignment, error)

	// ExpireDue moves every ACTIVE assignment past its expiry to EXPIRED and returns
	// how many were transitioned.
	ExpireDue(ctx context.Context, now time.Time) (int, error)

	// ListDueForReview returns ACTIVE assignments whose next review falls within the
	// lead window of now.
	ListDueForReview(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error)

	// CompleteReview records a review. APPROVED schedules the next review; FAILED
	// suspends the assignment and clears the principal's primary role when it matches.
	CompleteReview(
		ctx context.Context,
		assignmentID uuid.UUID,
		outcome domain.ReviewOutcome,
		reason string,
	) (*domain.RoleAssignment, error)
}
