// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package weighting models a subset's weighting scheme.

A scheme is a list of Plans, each balancing one dimension across its
Targets. A target's Shape is exactly one of:

  - Leaf: carries the weighting group id the target's responses are
    balanced in
  - Nested: further plans balanced inside the target
  - ResponseLevel: a synthetic plan of externally supplied
    per-respondent weights

# Persisted Form

Schemes are stored flat as a Config of PlanRow and TargetRow values that
refer to their parents by id. Index answers the parent and child queries
over a Config, including the owning plan of a target. ToTree and FromTree
convert between the two forms; Clone and Flatten copy a stored scheme for
another subset or category.

# Group Ids

ToTree mints group ids depth-first. Each target of a group-root plan
starts a new group, and so does any list of more than one sibling plan,
since sibling dimensions are raked together. Leaves that neither rule
reaches share a single implicit group.

# Classification

Classify reports the Type (Unknown, Adhoc, Tracker) and Style bit set
(Interlocked, RIM, ResponseWeighting, Expansion) of a tree. It is a
diagnostic only and never affects how weights are generated.
*/
package weighting
