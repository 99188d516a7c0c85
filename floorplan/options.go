package floorplan

import "time"

// Options holds the tunables of a detection call. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// Tolerance is the endpoint-coincidence and intersection tolerance ε,
	// in input units.
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`

	MinArea      float64 `yaml:"minArea" json:"minArea"`
	MinPerimeter float64 `yaml:"minPerimeter" json:"minPerimeter"`
	// MaxArea rejects faces larger than this when > 0.
	MaxArea float64 `yaml:"maxArea,omitempty" json:"maxArea,omitempty"`

	// CanonicalMin and CanonicalMax bound the output coordinate range.
	// Rescaling is disabled when CanonicalMax <= CanonicalMin.
	CanonicalMin float64 `yaml:"canonicalMin" json:"canonicalMin"`
	CanonicalMax float64 `yaml:"canonicalMax" json:"canonicalMax"`

	// ComfortFactor is the multiple of a threshold at which a face stops
	// losing confidence.
	ComfortFactor   float64 `yaml:"comfortFactor" json:"comfortFactor"`
	ConfidenceFloor float64 `yaml:"confidenceFloor" json:"confidenceFloor"`
	FallbackFactor  float64 `yaml:"fallbackFactor" json:"fallbackFactor"`

	// MaxFallbackCycles caps the cycle search; 0 means one cycle per edge.
	MaxFallbackCycles int `yaml:"maxFallbackCycles,omitempty" json:"maxFallbackCycles,omitempty"`

	// Deadline bounds the intersection splitter when > 0.
	Deadline time.Duration `yaml:"deadline,omitempty" json:"deadline,omitempty"`

	// NameHint is the placeholder name assigned to every room.
	NameHint string `yaml:"nameHint,omitempty" json:"nameHint,omitempty"`
}

const (
	DefaultTolerance       = 1.0
	DefaultMinArea         = 100.0
	DefaultMinPerimeter    = 40.0
	DefaultCanonicalMax    = 1000.0
	DefaultComfortFactor   = 2.0
	DefaultConfidenceFloor = 0.5
	DefaultFallbackFactor  = 0.75
	DefaultNameHint        = "Room"
)

// DefaultOptions returns the tunables used by the HTTP service and CLI.
func DefaultOptions() Options {
	return Options{
		Tolerance:       DefaultTolerance,
		MinArea:         DefaultMinArea,
		MinPerimeter:    DefaultMinPerimeter,
		CanonicalMin:    0,
		CanonicalMax:    DefaultCanonicalMax,
		ComfortFactor:   DefaultComfortFactor,
		ConfidenceFloor: DefaultConfidenceFloor,
		FallbackFactor:  DefaultFallbackFactor,
		NameHint:        DefaultNameHint,
	}
}

// withDefaults fills the scoring knobs left at zero so that partially
// populated Options (e.g. from YAML) still score sensibly.
func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.ComfortFactor <= 1 {
		o.ComfortFactor = DefaultComfortFactor
	}
	if o.ConfidenceFloor <= 0 || o.ConfidenceFloor > 1 {
		o.ConfidenceFloor = DefaultConfidenceFloor
	}
	if o.FallbackFactor <= 0 || o.FallbackFactor > 1 {
		o.FallbackFactor = DefaultFallbackFactor
	}
	if o.NameHint == "" {
		o.NameHint = DefaultNameHint
	}
	return o
}

// rescaleEnabled reports whether a canonical range is configured.
func (o Options) rescaleEnabled() bool {
	return o.CanonicalMax > o.CanonicalMin
}
