package domain

// DRIReference is the set of reference intake values for one micronutrient.
// A zero UL or EAR means no value has been established.
type DRIReference struct {
	DRI float64
	EAR float64
	UL  float64
}

// DRIProfile maps tracked micronutrient keys to demographic-specific
// reference values. The key set doubles as the fixed reference set of
// micronutrients reported in every solve response.
type DRIProfile map[string]DRIReference

// DRIRepository resolves reference intake tables for a demographic.
type DRIRepository interface {
	Profile(d Demographic) DRIProfile
}
