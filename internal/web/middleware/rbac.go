package middleware

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/kozaktomas/geo-attendance/internal/database"
)

// Resources and actions checked by Authorize.
const (
	ResourceProfile       = "profile"
	ResourceAttendance    = "attendance"
	ResourceAllAttendance = "attendance_all"
	ResourceOffice        = "office"

	ActionRead  = "read"
	ActionWrite = "write"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// NewEnforcer builds the role policy: employees manage their own profile and
// attendance and can read the office; admins additionally set the office and
// read everyone's attendance.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parse rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	employee, admin := string(database.RoleEmployee), string(database.RoleAdmin)
	policies := [][]string{
		{employee, ResourceProfile, ActionRead},
		{employee, ResourceProfile, ActionWrite},
		{employee, ResourceAttendance, ActionRead},
		{employee, ResourceAttendance, ActionWrite},
		{employee, ResourceOffice, ActionRead},
		{admin, ResourceOffice, ActionWrite},
		{admin, ResourceAllAttendance, ActionRead},
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}
	if _, err := e.AddGroupingPolicy(admin, employee); err != nil {
		return nil, fmt.Errorf("add role inheritance: %w", err)
	}
	return e, nil
}

// Authorize rejects callers whose role may not perform act on obj.
// It must run after RequireAuth.
func Authorize(e *casbin.Enforcer, obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			ok, err := e.Enforce(string(identity.Role), obj, act)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "authorization failed")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
