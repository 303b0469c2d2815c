// Package rbac maps roles to fine-grained permissions.
//
// The role table is static and read-only; it is defined here at build time
// and never persisted.
package rbac

type Role string

const (
	RoleUser   Role = "USER"
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleGuest  Role = "GUEST"
)

type Permission string

const (
	UserCreate  Permission = "USER_CREATE"
	UserReadAll Permission = "USER_READ_ALL"
	UserReadOne Permission = "USER_READ_ONE"
	UserUpdate  Permission = "USER_UPDATE"
	UserDelete  Permission = "USER_DELETE"

	ArticleCreate    Permission = "ARTICLE_CREATE"
	ArticleReadAll   Permission = "ARTICLE_READ_ALL"
	ArticleReadOne   Permission = "ARTICLE_READ_ONE"
	ArticleUpdateOwn Permission = "ARTICLE_UPDATE_OWN"
	ArticleUpdateAny Permission = "ARTICLE_UPDATE_ANY"
	ArticleDeleteOwn Permission = "ARTICLE_DELETE_OWN"
	ArticleDeleteAny Permission = "ARTICLE_DELETE_ANY"

	SettingsView Permission = "SETTINGS_VIEW"
	SettingsEdit Permission = "SETTINGS_EDIT"

	TaskCreate        Permission = "TASK_CREATE"
	TaskReadOwnList   Permission = "TASK_READ_OWN_LIST"
	TaskReadAnyList   Permission = "TASK_READ_ANY_LIST"
	TaskReadOwnDetail Permission = "TASK_READ_OWN_DETAIL"
	TaskReadAnyDetail Permission = "TASK_READ_ANY_DETAIL"
	TaskUpdateOwn     Permission = "TASK_UPDATE_OWN"
	TaskUpdateAny     Permission = "TASK_UPDATE_ANY"
	TaskDeleteOwn     Permission = "TASK_DELETE_OWN"
	TaskDeleteAny     Permission = "TASK_DELETE_ANY"
)

var rolePermissions = map[Role][]Permission{
	RoleUser: {
		ArticleReadAll, ArticleReadOne, ArticleUpdateOwn, ArticleDeleteOwn,
		TaskCreate, TaskReadOwnList, TaskReadOwnDetail, TaskUpdateOwn, TaskDeleteOwn,
	},
	RoleAdmin: {
		UserCreate, UserReadAll, UserReadOne, UserUpdate, UserDelete,
		ArticleCreate, ArticleReadAll, ArticleReadOne, ArticleUpdateOwn, ArticleUpdateAny, ArticleDeleteOwn, ArticleDeleteAny,
		SettingsView, SettingsEdit,
		TaskCreate, TaskReadOwnList, TaskReadAnyList, TaskReadOwnDetail, TaskReadAnyDetail,
		TaskUpdateOwn, TaskUpdateAny, TaskDeleteOwn, TaskDeleteAny,
	},
	RoleEditor: {
		ArticleCreate, ArticleReadAll, ArticleReadOne, ArticleUpdateOwn, ArticleUpdateAny, ArticleDeleteOwn,
	},
	RoleGuest: {ArticleReadAll, ArticleReadOne},
}

// Set is a deduplicated collection of permissions.
type Set map[Permission]struct{}

// Resolve unions the permissions of every role.
func Resolve(roles ...Role) Set {
	set := Set{}
	for _, r := range roles {
		for _, p := range rolePermissions[r] {
			set[p] = struct{}{}
		}
	}
	return set
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions in a stable order: role table order, first
// occurrence wins.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	seen := make(map[Permission]struct{}, len(s))
	for _, role := range []Role{RoleUser, RoleAdmin, RoleEditor, RoleGuest} {
		for _, p := range rolePermissions[role] {
			if _, ok := s[p]; !ok {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// HasAll reports whether every required permission is granted. No required
// permissions means open to any authenticated principal.
func HasAll(granted Set, required ...Permission) bool {
	for _, p := range required {
		if !granted.Has(p) {
			return false
		}
	}
	return true
}

// Allowed is the guard check for a principal holding roles. It denies a
// principal without roles whenever something is required.
func Allowed(roles []Role, required ...Permission) bool {
	if len(required) == 0 {
		return true
	}
	if len(roles) == 0 {
		return false
	}
	return HasAll(Resolve(roles...), required...)
}

// ParseRoles converts raw role names, dropping unknown values.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(n)
		if _, ok := rolePermissions[r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// Strings renders roles as plain strings.
func Strings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
