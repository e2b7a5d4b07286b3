package model

import "time"

// Credential is a named secret held by the credential store. Name identifies
// the secret ("tmdb"); Value is its plaintext payload, either a bare string or
// a JSON object carrying the secret under a designated key.
type Credential struct {
	ID        int64
	Name      string
	Value     string
	UpdatedAt time.Time
}
