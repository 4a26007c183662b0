package storage

import "encoding/json"

// Keys under which the session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Record is the persisted session: the bearer token under KeyToken and the
// serialized user under KeyUser. Either half may be missing when storage was
// partially cleared or corrupted; the session store decides what that means.
type Record struct {
	Token string          `json:"token,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
}

// Empty reports whether neither key is present.
func (r Record) Empty() bool {
	return r.Token == "" && len(r.User) == 0
}
