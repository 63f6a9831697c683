package sampler

import "math"

const (
	attenuationFloorDB = -100.0
	attenuationSteps   = 1001 // tenths of a dB from 0 to -100

	velocitySteps   = 128
	velocityCurveK  = 3.0
	velocityRangeDB = 40.0
)

var (
	attenuationTable = buildAttenuationTable()
	velocityCurve    = buildVelocityCurve()
	velocityVolume   = buildVelocityVolume()
)

func buildAttenuationTable() [attenuationSteps]float32 {
	var t [attenuationSteps]float32
	for i := range t {
		db := -float64(i) / 10.0
		t[i] = float32(math.Pow(10, db/10))
	}
	return t
}

// Attenuation converts an attenuation in dB (clamped to [-100,0]) to linear
// gain as 10^(dB/10), at a resolution of a tenth of a dB.
func Attenuation(db float32) float32 {
	if !(db < 0) {
		return attenuationTable[0]
	}
	if db <= attenuationFloorDB {
		return attenuationTable[attenuationSteps-1]
	}
	return attenuationTable[int(-db*10+0.5)]
}

// envelopeGain maps an envelope factor in [0,1] onto the attenuation curve.
func envelopeGain(env float64) float32 {
	return Attenuation(float32((1 - env) * attenuationFloorDB))
}

func buildVelocityCurve() [velocitySteps]float32 {
	var t [velocitySteps]float32
	den := math.Exp(velocityCurveK) - 1
	for i := range t {
		x := float64(i) / float64(velocitySteps-1)
		t[i] = float32((math.Exp(velocityCurveK*x) - 1) / den)
	}
	return t
}

func buildVelocityVolume() [velocitySteps]float32 {
	var t [velocitySteps]float32
	for i := range t {
		x := float64(i) / float64(velocitySteps-1)
		db := (1 - x) * -velocityRangeDB
		t[i] = float32(math.Pow(10, db/10))
	}
	return t
}

func velocityIndex(v float32) int {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return velocitySteps - 1
	}
	return int(v*float32(velocitySteps-1) + 0.5)
}

// warpVelocity returns the exponentially warped velocity and the matching
// volume from the velocity-volume table.
func warpVelocity(v float32) (warped float32, volume float32) {
	warped = velocityCurve[velocityIndex(v)]
	volume = velocityVolume[velocityIndex(warped)]
	return warped, volume
}
