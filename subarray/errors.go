package subarray

import "errors"

// Errors
var (
	// Budget errors
	ErrUnknownAttribute = errors.New("attribute not in schema")
	ErrBudgetKind       = errors.New("budget API does not match attribute kind")
	ErrZeroBudget       = errors.New("budget must be positive")
	ErrBudgetNotSet     = errors.New("budget not set for attribute")

	// Domain errors
	ErrEmptyRange         = errors.New("range lower bound exceeds upper bound")
	ErrOutOfDomain        = errors.New("range exceeds dimension domain")
	ErrBadDimension       = errors.New("dimension index out of bounds")
	ErrGlobalOrderRanges  = errors.New("global order requires one range per dimension")
	ErrNoEstimator        = errors.New("subarray has no result size estimator")
	ErrSplitPointOutside  = errors.New("splitting point outside the subarray ranges")
	ErrIntervalShape      = errors.New("range interval does not form a materializable subarray")

	// Invariant violations; reaching one is a bug
	ErrInternal = errors.New("partitioner invariant violated")
)
