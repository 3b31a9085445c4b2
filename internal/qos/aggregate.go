package qos

// Aggregate combines the QoS of a sequential chain.
//
// Time-like metrics sum. Availability, reliability and successability are
// independent probabilities and multiply. Throughput, compliance, best
// practices and documentation take the weakest link. A single vector is
// returned unchanged and an empty chain yields the zero vector.
func Aggregate(chain []Vector) Vector {
	switch len(chain) {
	case 0:
		return Vector{}
	case 1:
		return chain[0]
	}

	agg := Vector{
		Availability:   1,
		Reliability:    1,
		Successability: 1,
		Throughput:     chain[0].Throughput,
		Compliance:     chain[0].Compliance,
		BestPractices:  chain[0].BestPractices,
		Documentation:  chain[0].Documentation,
	}

	for _, v := range chain {
		agg.ResponseTime += v.ResponseTime
		agg.Latency += v.Latency

		agg.Availability *= v.Availability / 100
		agg.Reliability *= v.Reliability / 100
		agg.Successability *= v.Successability / 100

		agg.Throughput = min(agg.Throughput, v.Throughput)
		agg.Compliance = min(agg.Compliance, v.Compliance)
		agg.BestPractices = min(agg.BestPractices, v.BestPractices)
		agg.Documentation = min(agg.Documentation, v.Documentation)
	}

	agg.Availability *= 100
	agg.Reliability *= 100
	agg.Successability *= 100

	return agg
}

// Winner labels the better side of a per-dimension comparison.
type Winner string

const (
	WinnerA   Winner = "a"
	WinnerB   Winner = "b"
	WinnerTie Winner = "tie"
)

// Comparison is the outcome of comparing one dimension of two vectors.
// Difference is positive when A is better.
type Comparison struct {
	Dimension  string  `json:"dimension" yaml:"dimension"`
	A          float64 `json:"a" yaml:"a"`
	B          float64 `json:"b" yaml:"b"`
	Winner     Winner  `json:"winner" yaml:"winner"`
	Difference float64 `json:"difference" yaml:"difference"`
}

// Compare reports, dimension by dimension, which of a and b is better.
func Compare(a, b Vector) []Comparison {
	out := make([]Comparison, 0, NumDimensions)
	for _, d := range Dimensions {
		va, vb := a.Get(d), b.Get(d)
		diff := va - vb
		if d.LowerIsBetter() {
			diff = vb - va
		}

		winner := WinnerTie
		switch {
		case diff > 0:
			winner = WinnerA
		case diff < 0:
			winner = WinnerB
		}

		out = append(out, Comparison{
			Dimension:  d.String(),
			A:          va,
			B:          vb,
			Winner:     winner,
			Difference: diff,
		})
	}
	return out
}
