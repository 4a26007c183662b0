package domain

// User is the authenticated identity returned by the backend.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	GithubID string `json:"githubId,omitempty"`
}

// AuthResult is the success body of the login and register endpoints.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Credentials is the body of POST /api/users/login. The backend keys
// accounts by email, so the identifier typed by the user is sent as email.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /api/users/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
