package enums

import "fmt"

// GuaranteeRatioScope selects which agents count toward a batch window's
// guarantee ratio.
type GuaranteeRatioScope string

const (
	// RatioScopeWholePool computes the ratio over every online agent.
	RatioScopeWholePool GuaranteeRatioScope = "whole_pool"
	// RatioScopeAssignedOnly computes the ratio over agents assigned in the run.
	RatioScopeAssignedOnly GuaranteeRatioScope = "assigned_only"
)

var validRatioScopes = []GuaranteeRatioScope{
	RatioScopeWholePool,
	RatioScopeAssignedOnly,
}

// String implements fmt.Stringer.
func (s GuaranteeRatioScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GuaranteeRatioScope.
func (s GuaranteeRatioScope) IsValid() bool {
	for _, candidate := range validRatioScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseGuaranteeRatioScope converts raw input into a GuaranteeRatioScope.
func ParseGuaranteeRatioScope(value string) (GuaranteeRatioScope, error) {
	for _, candidate := range validRatioScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid guarantee ratio scope %q", value)
}
