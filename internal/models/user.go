package models

// User is the authenticated principal that owns editor data.
type User struct {
	UserID      string   `json:"userId"`
	Name        string   `json:"name,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
}
