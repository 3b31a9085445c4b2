// Package qos holds the nine-dimension quality-of-service vector, the utility
// model that turns a vector plus constraints into a single score, and the
// aggregation rules for sequential chains of services.
package qos

import (
	"fmt"
	"math"
)

// Dimension identifies one of the nine QoS metrics.
type Dimension int

const (
	ResponseTime Dimension = iota
	Availability
	Throughput
	Successability
	Reliability
	Compliance
	BestPractices
	Latency
	Documentation
)

// NumDimensions is the number of metrics in a Vector.
const NumDimensions = 9

// Dimensions lists every metric in canonical order.
var Dimensions = [NumDimensions]Dimension{
	ResponseTime, Availability, Throughput, Successability, Reliability,
	Compliance, BestPractices, Latency, Documentation,
}

var dimensionNames = [NumDimensions]string{
	"ResponseTime", "Availability", "Throughput", "Successability", "Reliability",
	"Compliance", "BestPractices", "Latency", "Documentation",
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= NumDimensions {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// LowerIsBetter reports whether smaller values of d are preferable.
// Time-like metrics (response time, latency) are; everything else is not.
func (d Dimension) LowerIsBetter() bool {
	return d == ResponseTime || d == Latency
}

// Vector is the QoS profile of a service, or a set of thresholds when used
// as request constraints.
type Vector struct {
	ResponseTime   float64 `json:"response_time" yaml:"response_time" mapstructure:"response_time" validate:"finite,gte=0"`
	Availability   float64 `json:"availability" yaml:"availability" mapstructure:"availability" validate:"finite,gte=0,lte=100"`
	Throughput     float64 `json:"throughput" yaml:"throughput" mapstructure:"throughput" validate:"finite,gte=0"`
	Successability float64 `json:"successability" yaml:"successability" mapstructure:"successability" validate:"finite,gte=0,lte=100"`
	Reliability    float64 `json:"reliability" yaml:"reliability" mapstructure:"reliability" validate:"finite,gte=0,lte=100"`
	Compliance     float64 `json:"compliance" yaml:"compliance" mapstructure:"compliance" validate:"finite,gte=0,lte=100"`
	BestPractices  float64 `json:"best_practices" yaml:"best_practices" mapstructure:"best_practices" validate:"finite,gte=0,lte=100"`
	Latency        float64 `json:"latency" yaml:"latency" mapstructure:"latency" validate:"finite,gte=0"`
	Documentation  float64 `json:"documentation" yaml:"documentation" mapstructure:"documentation" validate:"finite,gte=0,lte=100"`
}

// Get returns the value of dimension d.
func (v Vector) Get(d Dimension) float64 {
	switch d {
	case ResponseTime:
		return v.ResponseTime
	case Availability:
		return v.Availability
	case Throughput:
		return v.Throughput
	case Successability:
		return v.Successability
	case Reliability:
		return v.Reliability
	case Compliance:
		return v.Compliance
	case BestPractices:
		return v.BestPractices
	case Latency:
		return v.Latency
	case Documentation:
		return v.Documentation
	}
	return 0
}

// Values returns the vector as an array in canonical dimension order.
func (v Vector) Values() [NumDimensions]float64 {
	var out [NumDimensions]float64
	for _, d := range Dimensions {
		out[d] = v.Get(d)
	}
	return out
}

// IsFinite reports whether every component is a finite number.
func (v Vector) IsFinite() bool {
	for _, d := range Dimensions {
		x := v.Get(d)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Checks records, per dimension, whether a vector satisfies a constraint set.
type Checks [NumDimensions]bool

// Check evaluates v against constraints: <= for time-like metrics, >= for
// the rest.
func Check(v, constraints Vector) Checks {
	var c Checks
	for _, d := range Dimensions {
		if d.LowerIsBetter() {
			c[d] = v.Get(d) <= constraints.Get(d)
		} else {
			c[d] = v.Get(d) >= constraints.Get(d)
		}
	}
	return c
}

// Satisfied returns the number of satisfied constraints.
func (c Checks) Satisfied() int {
	n := 0
	for _, ok := range c {
		if ok {
			n++
		}
	}
	return n
}

// Ratio returns the fraction of satisfied constraints.
func (c Checks) Ratio() float64 {
	return float64(c.Satisfied()) / NumDimensions
}
