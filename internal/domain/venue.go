package domain

// VenueTier ranks venues by operational reliability. Tier assignments are
// operator configuration, not a system contract.
type VenueTier int

const (
	TierUnknown VenueTier = iota
	Tier1
	Tier2
	Tier3
)

// VenueInfo is the per-cycle observed state of one venue: tier from config,
// latency and health from the snapshot source at cycle start.
type VenueInfo struct {
	ID        string
	Tier      VenueTier
	LatencyMs float64
	Healthy   bool
}
