// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. PasswordHash and Salt never leave the server.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Salt         []byte
	AvatarKey    string
	CreatedAt    time.Time
}
