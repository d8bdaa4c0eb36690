// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cellweights is the default cell weight generator.

For a window it counts each cell's responses, works out the share of the
total each cell should carry from the weighting scheme, and returns

	weight = share * scale / count

where scale is the sample size, or the total target population for
expansion schemes.

Shares are allocated top-down. A single plan splits its mass across its
targets by proportion (falling back to population shares, then sample
shares), then recurses into nested plans. Sibling plans are raked
(iterative proportional fitting) against all of their targets at once.
A response-level plan splits its mass by the respondents' supplied
multipliers. Proportions are renormalized over targets that have
respondents, so empty targets do not lose mass.

Cells without responses in the window, and cells the scheme gives no
share, are absent from the result.
*/
package cellweights
