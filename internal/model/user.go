// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: the password signup form and the Google
// OAuth callback. Both end up as the same row — OAuth-created accounts
// simply have an empty PasswordHash, which disables the password login
// path entirely. They can set a password later through the OTP reset
// flow, which proves ownership of the email address.
//
// WHY PasswordHash string (not *string)?
// An empty string is the natural "no password" zero value. A nullable
// pointer would force nil checks everywhere for no gain; nothing sensible
// ever hashes to "".
//
// OTPHash and OTPCreatedAt hold the bcrypt hash of the most recently
// issued password-reset code and when it was issued. Both are zero when
// no reset is pending. The plaintext code is never persisted.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	IsAdmin      bool      `json:"isAdmin"`
	OTPHash      string    `json:"-"`
	OTPCreatedAt time.Time `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether password login is enabled for this account.
// OAuth-only accounts have no stored hash and must sign in via Google
// (or complete an OTP reset to set a password).
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
