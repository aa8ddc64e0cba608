package model

import "time"

// Recipient is a known payee in the recipient/account index.
type Recipient struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Aliases     []string          `json:"aliases,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Verified    bool              `json:"verified"`
	CreatedAt   time.Time         `json:"created_at"`
}
