package domain

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// StaticRole is the route allow-list and permission list of one role name.
type StaticRole struct {
	Routes      []string `yaml:"routes"`
	Permissions []string `yaml:"permissions"`
}

// StaticTable maps role names to their static grants. It backs the RBAC sub-checks
// that run before the dynamic role graph lookup.
type StaticTable struct {
	Roles map[string]StaticRole `yaml:"roles"`
}

// DefaultStaticTable returns the built-in role table.
func DefaultStaticTable() *StaticTable {
	return &StaticTable{Roles: map[string]StaticRole{
		"SUPER_ADMIN": {Routes: []string{"*"}, Permissions: []string{"*:*"}},
		"ADMIN": {
			Routes:      []string{"/v1/*"},
			Permissions: []string{"*:*"},
		},
		"SECURITY": {
			Routes:      []string{"/v1/decisions", "/v1/resources/*", "/v1/audit-logs", "/v1/classify"},
			Permissions: []string{"visitor:*", "resource:read", "audit:read", "area:*", "decision:delegate"},
		},
		"MANAGER": {
			Routes: []string{"/v1/decisions", "/v1/resources", "/v1/resources/*", "/v1/shares", "/v1/shares/*"},
			Permissions: []string{
				"visitor:read", "visitor:write", "visitor:approve", "resource:read", "resource:write",
				"share:write", "report:read",
			},
		},
		"EMPLOYEE": {
			Routes:      []string{"/v1/decisions", "/v1/resources/*", "/v1/shares"},
			Permissions: []string{"visitor:read", "visitor:write", "resource:read"},
		},
	}}
}

// LoadStaticTable reads a YAML role table. Role names are normalized; the file replaces
// the built-in table entirely.
func LoadStaticTable(path string) (*StaticTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied configuration path
	if err != nil {
		return nil, fmt.Errorf("failed to read static role table: %w", err)
	}

	var table StaticTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse static role table: %w", err)
	}

	normalized := make(map[string]StaticRole, len(table.Roles))
	for name, role := range table.Roles {
		for _, permission := range role.Permissions {
			if _, err := ParsePermissionKey(permission); err != nil {
				return nil, fmt.Errorf("role %s: %w", name, err)
			}
		}
		normalized[NormalizeRoleName(name)] = role
	}
	table.Roles = normalized

	return &table, nil
}

// AllowsRoute reports whether role may reach path.
func (t *StaticTable) AllowsRoute(role, path string) bool {
	entry, ok := t.Roles[NormalizeRoleName(role)]
	if !ok {
		return false
	}
	return slices.ContainsFunc(entry.Routes, func(pattern string) bool {
		return MatchPath(pattern, path)
	})
}

// HasPermission reports whether role holds permission ("resource:action"). Either
// side of a table entry may be "*".
func (t *StaticTable) HasPermission(role, permission string) bool {
	entry, ok := t.Roles[NormalizeRoleName(role)]
	if !ok {
		return false
	}
	want, err := ParsePermissionKey(permission)
	if err != nil {
		return false
	}
	for _, granted := range entry.Permissions {
		key, err := ParsePermissionKey(granted)
		if err != nil {
			continue
		}
		if (key.Resource == "*" || key.Resource == want.Resource) && (key.Action == "*" || key.Action == want.Action) {
			return true
		}
	}
	return false
}

// MatchPath matches a request path against a route pattern. "*" alone matches
// everything, a trailing "/*" matches any deeper path and a mid-path "*" matches
// exactly one segment.
func MatchPath(pattern, path string) bool {
	if pattern == "*" {
		return true
	}

	if !strings.Contains(pattern, "*") {
		return pattern == path
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if !strings.Contains(prefix, "*") {
			return strings.HasPrefix(path, prefix+"/")
		}
	}

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	if len(patternParts) != len(pathParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] != "*" && patternParts[i] != pathParts[i] {
			return false
		}
	}
	return true
}
