// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package generation exports one weight per response for a subset.

The Service partitions a subset's quota cells into unweighted cells and
independent groups (one per wave, typically). Unweighted responses get a
zero weight and the allocation explainer's diagnostics. Each independent
group is weighted on its own: the group's weighting-group id is locked,
the cell weight generator is called once for the whole span (no average)
or once per distinct period end (with an average), and every response in
the group is mapped to its cell's weight.

A response whose cell is missing from the computed weights is exported
with weight 0 and the reason "!No lookup found." instead of failing the
export. Any other failure aborts the whole export.

# Collaborators

Storage and the numeric balancing algorithm are reached through the
interfaces in interfaces.go. db.Store implements the repositories and
cellweights.Generator implements CellWeightGenerator.
*/
package generation
