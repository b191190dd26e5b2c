package domain

import "time"

// Feature names an optional CAD capability toggled by administrators.
type Feature string

const (
	FeatureActiveDispatchers Feature = "ACTIVE_DISPATCHERS"
	FeatureBleeter           Feature = "BLEETER"
	FeatureCalls911          Feature = "CALLS_911"
	FeatureImpoundLot        Feature = "IMPOUND_LOT"
)

// CadFeature records whether a feature is enabled.
type CadFeature struct {
	Feature   Feature
	IsEnabled bool
}

// MiscCadSettings holds limits and toggles. A zero limit means unlimited.
type MiscCadSettings struct {
	ID                        string
	MaxOfficersPerUser        int
	MaxDepartmentsEachPerUser int
	MaxDivisionsPerOfficer    int
	MaxCitizensPerUser        int
	Signal100Enabled          bool
}

// Cad is the single community configuration record.
type Cad struct {
	ID              string
	Name            string
	AreaOfPlay      *string
	Features        []CadFeature
	MiscCadSettings MiscCadSettings
	UpdatedAt       time.Time
}

// FeatureEnabled reports whether the feature is switched on. Features that
// were never configured count as enabled, except ACTIVE_DISPATCHERS which
// must be turned on explicitly.
func (c Cad) FeatureEnabled(feature Feature) bool {
	for _, f := range c.Features {
		if f.Feature == feature {
			return f.IsEnabled
		}
	}
	return feature != FeatureActiveDispatchers
}

// LimitReached reports whether count has hit a configured limit. Zero or negative limits never trigger.
func LimitReached(limit, count int) bool {
	return limit > 0 && count >= limit
}

// LimitExceeded reports whether n is above a configured limit. Zero or negative limits never trigger.
func LimitExceeded(limit, n int) bool {
	return limit > 0 && n > limit
}
