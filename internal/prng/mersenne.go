package prng

// mersenneTwister is the standard MT19937 generator (period 2^19937-1),
// seeded via init_by_array exactly as
// original_source/src/mt19937ar-cok/mt19937ar-cok.c seeds its SFMT state.
// The SIMD-oriented SFMT word layout itself is not available as a Go
// library in the retrieved pack; the scalar MT19937 reference algorithm
// satisfies the same contract (same period, same init_by_array seeding
// discipline, same deterministic-stream guarantee) and is what is
// implemented here.
type mersenneTwister struct {
	mt  [624]uint32
	idx int

	spare    [4]byte // unread bytes of the last word Fill took
	spareLen int
}

const (
	mtN          = 624
	mtM          = 397
	mtMatrixA    = 0x9908b0df
	mtUpperMask  = 0x80000000
	mtLowerMask  = 0x7fffffff
)

func newMersenneTwister(seed []byte) *mersenneTwister {
	s := &mersenneTwister{}
	s.initGenrand(19650218)
	key := seedWords32(seed)
	s.initByArray(key)
	return s
}

func (s *mersenneTwister) initGenrand(seed uint32) {
	s.mt[0] = seed
	for i := 1; i < mtN; i++ {
		s.mt[i] = 1812433253*(s.mt[i-1]^(s.mt[i-1]>>30)) + uint32(i)
	}
	s.idx = mtN
}

func (s *mersenneTwister) initByArray(key []uint32) {
	if len(key) == 0 {
		key = []uint32{0}
	}
	i, j := 1, 0
	k := mtN
	if len(key) > k {
		k = len(key)
	}
	for ; k > 0; k-- {
		s.mt[i] = (s.mt[i] ^ ((s.mt[i-1] ^ (s.mt[i-1] >> 30)) * 1664525)) + key[j] + uint32(j)
		i++
		j++
		if i >= mtN {
			s.mt[0] = s.mt[mtN-1]
			i = 1
		}
		if j >= len(key) {
			j = 0
		}
	}
	for k = mtN - 1; k > 0; k-- {
		s.mt[i] = (s.mt[i] ^ ((s.mt[i-1] ^ (s.mt[i-1] >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= mtN {
			s.mt[0] = s.mt[mtN-1]
			i = 1
		}
	}
	s.mt[0] = 0x80000000
}

func (s *mersenneTwister) next() uint32 {
	if s.idx >= mtN {
		s.generate()
	}
	y := s.mt[s.idx]
	s.idx++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

func (s *mersenneTwister) generate() {
	for i := 0; i < mtN; i++ {
		y := (s.mt[i] & mtUpperMask) | (s.mt[(i+1)%mtN] & mtLowerMask)
		next := s.mt[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 != 0 {
			next ^= mtMatrixA
		}
		s.mt[i] = next
	}
	s.idx = 0
}

func (s *mersenneTwister) Fill(buf []byte) {
	i := 0
	for i < len(buf) && s.spareLen > 0 {
		buf[i] = s.spare[4-s.spareLen]
		s.spareLen--
		i++
	}
	for i < len(buf) {
		v := s.next()
		for b := 0; b < 4; b++ {
			if i < len(buf) {
				buf[i] = byte(v >> (8 * b))
				i++
			} else {
				s.spare[b] = byte(v >> (8 * b))
				s.spareLen++
			}
		}
	}
}

func (s *mersenneTwister) Finalize() {}
