package bidding

import (
	"time"

	"tractorbid/internal/config"
	"tractorbid/internal/models"
)

// ExtensionPolicy is the resolved anti-snipe configuration for one auction.
// Per-auction overrides win; NULL columns fall back to the configured
// defaults. Resolution happens once, at auction-read time.
type ExtensionPolicy struct {
	Enabled       bool
	ExtendBy      time.Duration
	Threshold     time.Duration
	MaxExtensions int
}

func ResolvePolicy(a *models.Auction, defaults config.BiddingConfig) ExtensionPolicy {
	p := ExtensionPolicy{
		Enabled:       defaults.AutoExtendEnabled,
		ExtendBy:      time.Duration(defaults.AutoExtendMinutes) * time.Minute,
		Threshold:     time.Duration(defaults.AutoExtendThresholdMins) * time.Minute,
		MaxExtensions: defaults.MaxExtensions,
	}
	if a == nil {
		return p
	}
	if a.AutoExtendEnabled != nil {
		p.Enabled = *a.AutoExtendEnabled
	}
	if a.AutoExtendMinutes != nil {
		p.ExtendBy = time.Duration(*a.AutoExtendMinutes) * time.Minute
	}
	if a.AutoExtendThresholdMin != nil {
		p.Threshold = time.Duration(*a.AutoExtendThresholdMin) * time.Minute
	}
	if a.MaxExtensions != nil {
		p.MaxExtensions = *a.MaxExtensions
	}
	return p
}

type ExtensionResult struct {
	Extended          bool
	NewEndTime        time.Time
	NewExtensionCount int
}

// EvaluateExtension decides whether a qualifying bid pushes out the auction
// end time. It must be fed the endTime and extensionCount re-read under the
// row lock, never values captured before the transaction began.
//
// Extend iff the policy is enabled, the bid lands inside the threshold
// window before the end (0 < remaining <= threshold), and the extension cap
// has not been reached.
func EvaluateExtension(now, endTime time.Time, extensionCount int, policy ExtensionPolicy) ExtensionResult {
	out := ExtensionResult{
		NewEndTime:        endTime,
		NewExtensionCount: extensionCount,
	}
	if !policy.Enabled {
		return out
	}
	if extensionCount >= policy.MaxExtensions {
		return out
	}
	remaining := endTime.Sub(now)
	if remaining <= 0 || remaining > policy.Threshold {
		return out
	}
	out.Extended = true
	out.NewEndTime = endTime.Add(policy.ExtendBy)
	out.NewExtensionCount = extensionCount + 1
	return out
}
