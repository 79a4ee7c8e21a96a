package automaton

import "math"

const (
	// Golden-ratio bit-mixing constants. No hash in this package uses
	// them; mix and mixWeightHigh32 rely on the murmur finalizer alone.
	phiC32 = uint32(0x9e3779b9)
	phiC64 = uint64(0x9e3779b97f4a7c15)
)

// mix is the finalizer used to fold a state index into a
// WeightedStateSet's hash.
func mix(key int) int {
	return mix32(key)
}

// mix32 is MurmurHash3's 32-bit finalizer.
func mix32(v int) int {
	k := uint32(v)
	k = (k ^ (k >> 16)) * 0x85ebca6b
	k = (k ^ (k >> 13)) * 0xc2b2ae35
	return int(k ^ (k >> 16))
}

// mixWeightHigh32 folds the high 32 bits of a log-space weight's
// IEEE-754 bit pattern into a single finalized value, so that
// WeightedStateSet.Hash mixes near-equal weights to colliding hashes
// while grossly unequal ones disperse (spec: equality on weights is
// tolerance-based, so the hash must be coarse enough to agree with it).
func mixWeightHigh32(logValue float64) int {
	bits := math.Float64bits(logValue)
	high32 := uint32(bits >> 32)
	return mix32(int(int32(high32)))
}
