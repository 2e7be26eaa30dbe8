package auth

type contextKey string

// SessionContextKey carries the authenticated *store.SessionRecord through
// request contexts.
const SessionContextKey contextKey = "rpi.session"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserDTO is the account shape returned to the frontend after login and on
// /me. Permissions is the flattened set the role policy grants.
type UserDTO struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	FullName    string   `json:"fullName"`
	Rank        string   `json:"rank"`
	Unit        string   `json:"unit"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Active      bool     `json:"active"`
}
