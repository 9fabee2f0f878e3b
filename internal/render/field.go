package render

import "math"

// splitmix64 is a fast, high-quality 64-bit mixer.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func hash2D(seed uint64, x, y int) uint64 {
	h := seed
	h ^= uint64(uint32(x)) * 0x9E3779B185EBCA87
	h ^= uint64(uint32(y)) * 0xC2B2AE3D27D4EB4F
	return splitmix64(h)
}

// hash01 maps a lattice point to [0,1).
func hash01(seed uint64, x, y int) float64 {
	return float64(hash2D(seed, x, y)>>11) / (1 << 53)
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

// valueNoise is smooth lattice noise in [0,1].
func valueNoise(seed uint64, x, y float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	ix, iy := int(x0), int(y0)
	fx, fy := smoothstep(x-x0), smoothstep(y-y0)
	a := hash01(seed, ix, iy)
	b := hash01(seed, ix+1, iy)
	c := hash01(seed, ix, iy+1)
	d := hash01(seed, ix+1, iy+1)
	top := a + (b-a)*fx
	bot := c + (d-c)*fx
	return top + (bot-top)*fy
}

// fbm sums octaves of valueNoise, normalized to [0,1].
func fbm(seed uint64, x, y float64, octaves int) float64 {
	sum, amp, norm := 0.0, 0.5, 0.0
	for i := 0; i < octaves; i++ {
		sum += valueNoise(seed+uint64(i)*0x51ED27, x, y) * amp
		norm += amp
		x, y = x*2.03+17.1, y*2.03-9.7
		amp *= 0.5
	}
	return sum / norm
}

// wave maps sin into [0,1].
func wave(x float64) float64 { return 0.5 + 0.5*math.Sin(x) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
