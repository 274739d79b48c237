// Package model holds the data types shared by the repository, service and
// handler layers. They carry JSON tags because handlers encode them directly.
package model

import "time"

// Snippet is a piece of C source saved from the runner, with the stdin it
// was last run with.
type Snippet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Stdin       string    `json:"stdin"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
