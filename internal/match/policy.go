package match

// Policy centralizes confidence levels and strategy limits.
type Policy struct {
	AutoApproveThreshold int
	FuzzyGate            int
	ExactConfidence      int
	VariantConfidence    int
	DescriptorConfidence int
	ContainMinLength     int
	ContainMinRatio      float64
	ContainFloor         int
	ContainCeiling       int
	PrefixMinWords       int
	PrefixCeiling        int
	OverlapMinTokens     int
	OverlapMinRatio      float64
	OverlapFloor         int
	OverlapCeiling       int
	FuzzyMinSimilarity   float64
	AgreementBoost       int
	AgreementCap         int
	MinSignalLength      int
	MaxSuggestions       int
}

// DefaultPolicy returns the thresholds the resolver was tuned with.
func DefaultPolicy() Policy {
	return Policy{
		AutoApproveThreshold: 85,
		FuzzyGate:            85,
		ExactConfidence:      100,
		VariantConfidence:    95,
		DescriptorConfidence: 90,
		ContainMinLength:     6,
		ContainMinRatio:      0.5,
		ContainFloor:         55,
		ContainCeiling:       99,
		PrefixMinWords:       3,
		PrefixCeiling:        95,
		OverlapMinTokens:     2,
		OverlapMinRatio:      0.5,
		OverlapFloor:         50,
		OverlapCeiling:       98,
		FuzzyMinSimilarity:   0.6,
		AgreementBoost:       5,
		AgreementCap:         99,
		MinSignalLength:      4,
		MaxSuggestions:       3,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.AutoApproveThreshold <= 0 || p.AutoApproveThreshold > 100 {
		p.AutoApproveThreshold = d.AutoApproveThreshold
	}
	if p.FuzzyGate <= 0 || p.FuzzyGate > 100 {
		p.FuzzyGate = d.FuzzyGate
	}
	if p.ExactConfidence <= 0 || p.ExactConfidence > 100 {
		p.ExactConfidence = d.ExactConfidence
	}
	if p.VariantConfidence <= 0 || p.VariantConfidence > 100 {
		p.VariantConfidence = d.VariantConfidence
	}
	if p.DescriptorConfidence <= 0 || p.DescriptorConfidence > 100 {
		p.DescriptorConfidence = d.DescriptorConfidence
	}
	if p.ContainMinLength <= 0 {
		p.ContainMinLength = d.ContainMinLength
	}
	if p.ContainMinRatio <= 0 || p.ContainMinRatio >= 1 {
		p.ContainMinRatio = d.ContainMinRatio
	}
	if p.ContainFloor <= 0 || p.ContainCeiling > 100 || p.ContainFloor >= p.ContainCeiling {
		p.ContainFloor, p.ContainCeiling = d.ContainFloor, d.ContainCeiling
	}
	if p.PrefixMinWords <= 0 {
		p.PrefixMinWords = d.PrefixMinWords
	}
	if p.PrefixCeiling <= 0 || p.PrefixCeiling > 100 {
		p.PrefixCeiling = d.PrefixCeiling
	}
	if p.OverlapMinTokens <= 0 {
		p.OverlapMinTokens = d.OverlapMinTokens
	}
	if p.OverlapMinRatio <= 0 || p.OverlapMinRatio >= 1 {
		p.OverlapMinRatio = d.OverlapMinRatio
	}
	if p.OverlapFloor <= 0 || p.OverlapCeiling > 100 || p.OverlapFloor >= p.OverlapCeiling {
		p.OverlapFloor, p.OverlapCeiling = d.OverlapFloor, d.OverlapCeiling
	}
	if p.FuzzyMinSimilarity <= 0 || p.FuzzyMinSimilarity >= 1 {
		p.FuzzyMinSimilarity = d.FuzzyMinSimilarity
	}
	if p.AgreementBoost < 0 {
		p.AgreementBoost = d.AgreementBoost
	}
	if p.AgreementCap <= 0 || p.AgreementCap > 100 {
		p.AgreementCap = d.AgreementCap
	}
	if p.MinSignalLength <= 0 {
		p.MinSignalLength = d.MinSignalLength
	}
	if p.MaxSuggestions <= 0 {
		p.MaxSuggestions = d.MaxSuggestions
	}
	return p
}

// scale maps ratio from [lo,1] onto [floor,ceiling].
func scale(ratio, lo float64, floor, ceiling int) int {
	if ratio <= lo {
		return floor
	}
	if ratio >= 1 {
		return ceiling
	}
	span := float64(ceiling - floor)
	return floor + int(roundHalfUp((ratio-lo)/(1-lo)*span))
}

func roundHalfUp(v float64) float64 {
	return float64(int(v + 0.5))
}

func clampConfidence(v int) int {
	return min(max(v, 0), 100)
}
