// Package access decides what an authenticated user may see and do.
// Every rule switches over the closed set of roles; an unknown role is denied.
package access

import (
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core/user"
)

var ErrUnauthorized = errors.New("permission denied")

// Principal is the authenticated user a decision is made for.
type Principal struct {
	ID   string
	Role user.Role
}

func (p Principal) IsZero() bool { return p.ID == "" }

// CanEvaluate reports whether p may open the evaluation form and submit evaluations.
func CanEvaluate(p Principal) bool {
	switch p.Role {
	case user.RoleManager, user.RoleManagerPlus:
		return true
	case user.RoleUser:
		return false
	}
	return false
}

// CanEvaluateUser reports whether p may submit an evaluation of target.
func CanEvaluateUser(p Principal, target user.User) bool {
	if !CanEvaluate(p) || p.ID == target.ID {
		return false
	}
	switch target.Role {
	case user.RoleManagerPlus:
		return p.Role == user.RoleManagerPlus
	case user.RoleUser, user.RoleManager:
		return true
	}
	return false
}

// CanManageUsers reports whether p may list, create and delete users.
func CanManageUsers(p Principal) bool {
	switch p.Role {
	case user.RoleManagerPlus:
		return true
	case user.RoleUser, user.RoleManager:
		return false
	}
	return false
}

// CanDeleteUser forbids deleting one's own account.
func CanDeleteUser(p Principal, targetID string) bool {
	return CanManageUsers(p) && p.ID != targetID
}

// CanViewUserEvaluations reports whether p may list the evaluations received by evaluatedUserID.
func CanViewUserEvaluations(p Principal, evaluatedUserID string) bool {
	if p.IsZero() {
		return false
	}
	switch p.Role {
	case user.RoleManager, user.RoleManagerPlus:
		return true
	case user.RoleUser:
		return p.ID == evaluatedUserID
	}
	return false
}

// CanViewEvaluation reports whether p may read a single evaluation and its items.
func CanViewEvaluation(p Principal, evaluatedUserID string) bool {
	return CanViewUserEvaluations(p, evaluatedUserID)
}

// EvaluatableFilter narrows the user list to the agents p may pick as the evaluated user.
// Managers never see Manager Plus accounts and nobody sees themselves.
func EvaluatableFilter(p Principal) (*user.QueryFilter, error) {
	switch p.Role {
	case user.RoleManagerPlus:
		return &user.QueryFilter{ExcludeIDs: []string{p.ID}}, nil
	case user.RoleManager:
		return &user.QueryFilter{
			ExcludeIDs:   []string{p.ID},
			ExcludeRoles: []user.Role{user.RoleManagerPlus},
		}, nil
	case user.RoleUser:
		return nil, ErrUnauthorized
	}
	return nil, ErrUnauthorized
}

// Require returns ErrUnauthorized unless allowed.
func Require(allowed bool) error {
	if !allowed {
		return ErrUnauthorized
	}
	return nil
}
