package features

// EnergyTrend is a coarse classification of loudness over a recording
type EnergyTrend string

const (
	TrendIncreasing EnergyTrend = "increasing"
	TrendDecreasing EnergyTrend = "decreasing"
	TrendStable     EnergyTrend = "stable"
	TrendUnknown    EnergyTrend = "unknown"
)

// AudioFeatures is an immutable per-recording snapshot of frame energy statistics.
// Energies are expressed on the native amplitude scale of the source bit depth.
type AudioFeatures struct {
	DurationSec         float64     `json:"duration_sec"`
	DurationMs          int64       `json:"duration_ms"`
	RMSEnergy           float64     `json:"rms_energy"`
	MaxAmplitude        float64     `json:"max_amplitude"`
	SilenceRatio        float64     `json:"silence_ratio"`           // Silent frames / trimmed active frames
	PauseCount          int         `json:"pause_count"`             // Runs of silent frames at or above the pause minimum
	MaxPauseDurationSec float64     `json:"max_pause_duration_sec"`  // Longest pause
	AvgPauseDurationSec float64     `json:"avg_pause_duration_sec"`  // Mean pause length
	EnergyTrend         EnergyTrend `json:"energy_trend"`            // First vs second half, ±15%
	SegmentEnergyTrend  EnergyTrend `json:"segment_energy_trend"`    // First vs last third of 10 segments, ±40%
	EnergyConsistency   float64     `json:"energy_consistency"`      // clamp(1 - std/(mean+1))
	SpeakingRate        float64     `json:"speaking_rate"`           // Energy rising edges per second
	SampleRate          int         `json:"sample_rate"`
	FrameCount          int         `json:"frame_count"`
	ActiveFrames        int         `json:"active_frames"`
}

// DefaultFeatures is substituted when a recording cannot be decoded
func DefaultFeatures() *AudioFeatures {
	return &AudioFeatures{
		SilenceRatio:       0.5,
		EnergyTrend:        TrendUnknown,
		SegmentEnergyTrend: TrendUnknown,
		EnergyConsistency:  0.5,
	}
}

// Map flattens the features for logging and output
func (f *AudioFeatures) Map() map[string]any {
	return map[string]any{
		"duration_sec":           f.DurationSec,
		"rms_energy":             f.RMSEnergy,
		"silence_ratio":          f.SilenceRatio,
		"pause_count":            f.PauseCount,
		"max_pause_duration_sec": f.MaxPauseDurationSec,
		"avg_pause_duration_sec": f.AvgPauseDurationSec,
		"energy_trend":           string(f.EnergyTrend),
		"segment_energy_trend":   string(f.SegmentEnergyTrend),
		"energy_consistency":     f.EnergyConsistency,
		"speaking_rate":          f.SpeakingRate,
		"sample_rate":            f.SampleRate,
	}
}
