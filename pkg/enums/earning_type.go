package enums

import "fmt"

// EarningType classifies ledger rows for an agent.
type EarningType string

const (
	// EarningTypeDelivery is recorded when a job reaches delivered.
	EarningTypeDelivery EarningType = "delivery"
	// EarningTypeGuaranteeTopup is emitted by payment finalization when an
	// agent's period earnings fall short of the guaranteed minimum.
	EarningTypeGuaranteeTopup EarningType = "guarantee_topup"
)

var validEarningTypes = []EarningType{
	EarningTypeDelivery,
	EarningTypeGuaranteeTopup,
}

// String implements fmt.Stringer.
func (e EarningType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningType.
func (e EarningType) IsValid() bool {
	for _, candidate := range validEarningTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEarningType converts raw input into an EarningType.
func ParseEarningType(value string) (EarningType, error) {
	for _, candidate := range validEarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning type %q", value)
}
