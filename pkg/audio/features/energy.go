package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// calculateRMSEnergy computes root-mean-square energy
func calculateRMSEnergy(pcm []float64) float64 {
	if len(pcm) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(pcm, pcm) / float64(len(pcm)))
}

// calculatePeak returns the largest absolute sample value
func calculatePeak(pcm []float64) float64 {
	peak := 0.0
	for _, s := range pcm {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// frameEnergies splits pcm into frames of frameLen samples and returns each frame's RMS
// scaled by fullScale. The trailing partial frame is kept.
func frameEnergies(pcm []float64, frameLen int, fullScale float64) []float64 {
	if frameLen <= 0 || len(pcm) == 0 {
		return nil
	}
	count := (len(pcm) + frameLen - 1) / frameLen
	energies := make([]float64, 0, count)
	for start := 0; start < len(pcm); start += frameLen {
		end := min(start+frameLen, len(pcm))
		energies = append(energies, calculateRMSEnergy(pcm[start:end])*fullScale)
	}
	return energies
}

// classifyTrend compares a later energy level against an earlier one with a relative threshold
func classifyTrend(earlier, later, threshold float64) EnergyTrend {
	switch {
	case later > earlier*(1+threshold):
		return TrendIncreasing
	case later < earlier*(1-threshold):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// halfTrend compares the mean energy of the first and second halves
func halfTrend(energies []float64, threshold float64) EnergyTrend {
	if len(energies) == 0 {
		return TrendStable
	}
	half := max(1, len(energies)/2)
	first := energies[:half]
	second := energies[half:]
	if len(second) == 0 {
		return TrendStable
	}
	return classifyTrend(stat.Mean(first, nil), stat.Mean(second, nil), threshold)
}

// segmentTrend splits pcm into equal segments and compares the first and last thirds
func segmentTrend(pcm []float64, segments, minSegmentLen int, fullScale, threshold float64) EnergyTrend {
	if segments < 3 {
		segments = 3
	}
	segLen := len(pcm) / segments
	if segLen < minSegmentLen || segLen == 0 {
		return TrendStable
	}

	energies := make([]float64, segments)
	for i := 0; i < segments; i++ {
		start := i * segLen
		energies[i] = calculateRMSEnergy(pcm[start:start+segLen]) * fullScale
	}

	third := len(energies) / 3
	start := stat.Mean(energies[:third], nil)
	end := stat.Mean(energies[len(energies)-third:], nil)
	return classifyTrend(start, end, threshold)
}

// energyConsistency is clamp(1 - std/(mean+1), 0, 1) over frame energies
func energyConsistency(energies []float64) float64 {
	if len(energies) == 0 {
		return 0.5
	}
	mean, std := stat.PopMeanStdDev(energies, nil)
	return clamp01(1 - std/(mean+1))
}

// countRisingEdges counts upward crossings of 0.7x a reference mean.
// window <= 0 uses the mean of all energies; otherwise a trailing window of that many frames.
func countRisingEdges(energies []float64, factor float64, window int) int {
	if len(energies) == 0 {
		return 0
	}

	globalThreshold := stat.Mean(energies, nil) * factor
	peaks := 0
	wasAbove := false
	for i, e := range energies {
		threshold := globalThreshold
		if window > 0 {
			lo := max(0, i-window+1)
			threshold = stat.Mean(energies[lo:i+1], nil) * factor
		}
		isAbove := e > threshold
		if isAbove && !wasAbove {
			peaks++
		}
		wasAbove = isAbove
	}
	return peaks
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
