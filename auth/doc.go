// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin keys for mutating a subset's weighting scheme.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(subsetID, salt)
	err := auth.ValidateAdminKey(subsetID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same subset ID and salt always produce the same key. This allows validation
without storing the key in the database.

# Requests

Handlers check the X-Admin-Key header:

	if err := auth.RequireAdminKey(r, subsetID, cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

A missing header gives ErrMissingAdminKey, a wrong one ErrInvalidAdminKey.
*/
package auth
