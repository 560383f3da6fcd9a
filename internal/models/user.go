package models

import (
	"encoding/json"
	"fmt"
)

// User is the account object the backend returns on sign-in, OAuth callback
// and profile fetch. Unknown fields are kept in Raw so the stored copy round-trips.
type User struct {
	ID       UserID `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Provider string `json:"provider,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UserID accepts both string and numeric identifiers
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// UnmarshalJSON keeps the original document alongside the typed fields
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original document when one was decoded
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	type plain User
	return json.Marshal(plain(u))
}

// TokenPair is the access/refresh credential pair issued on authentication
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
