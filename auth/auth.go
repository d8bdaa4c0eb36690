// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// AdminKeyHeader carries the admin key on mutating requests
const AdminKeyHeader = "X-Admin-Key"

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrMissingAdminKey = errors.New("missing admin key")
)

// GenerateAdminKey creates an HMAC-based admin key for a subset
// This is deterministic and verifiable
func GenerateAdminKey(subsetID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(subsetID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the subset
func ValidateAdminKey(subsetID, adminKey, salt string) error {
	expected := GenerateAdminKey(subsetID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// RequireAdminKey validates the request's X-Admin-Key header for a subset
func RequireAdminKey(r *http.Request, subsetID, salt string) error {
	key := r.Header.Get(AdminKeyHeader)
	if key == "" {
		return ErrMissingAdminKey
	}
	return ValidateAdminKey(subsetID, key, salt)
}
