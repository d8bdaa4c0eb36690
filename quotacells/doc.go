// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package quotacells resolves externally supplied per-respondent weights.

A Loader is created per subset for the lifetime of one export or request
and memoizes what it finds, including the absence of weights. It is
passed to weighting.ToTree as the response-level source.

# Depth Guard

A target nested under DefaultMaxDepth or more plan levels never gets
response-level weighting; the loader returns none for it. The limit can
be changed with WithMaxDepth.

# Synthetic Cells

Build turns (respondent, weight) pairs into a models.ResponseWeighting:
respondents sharing a weight share a synthetic cell, numbered from 1 in
ascending weight order.

# Validation

ValidateWeights reports on an upload before it is stored: negative weights
are rejected, weights outside 0.2..5.0 are flagged, and the total must be
within 1% of the number of respondents.
*/
package quotacells
