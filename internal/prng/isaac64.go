package prng

// isaac64 implements Bob Jenkins' ISAAC-64 generator, the reference
// algorithm spec §4.B names for the "isaac64" variant.
type isaac64 struct {
	mem [256]uint64
	rsl [256]uint64
	a   uint64
	b   uint64
	c   uint64
	pos int

	spare    [8]byte // unread bytes of the last word Fill took
	spareLen int
}

func newISAAC64(seed []byte) *isaac64 {
	s := &isaac64{}
	words := seedWords64(seed)
	for i := 0; i < isaacSize && i < len(words); i++ {
		s.rsl[i] = words[i]
	}
	s.init()
	return s
}

func isaacMix64(a, b, c, d, e, f, g, h uint64) (uint64, uint64, uint64, uint64, uint64, uint64, uint64, uint64) {
	a -= e
	f ^= h >> 9
	h += a
	b -= f
	g ^= a << 9
	a += b
	c -= g
	h ^= b >> 23
	b += c
	d -= h
	a ^= c << 15
	c += d
	e -= a
	b ^= d >> 14
	d += e
	f -= b
	c ^= e << 20
	e += f
	g -= c
	d ^= f >> 17
	f += g
	h -= d
	e ^= g << 14
	g += h
	return a, b, c, d, e, f, g, h
}

func (s *isaac64) init() {
	const golden = 0x9e3779b97f4a7c13
	a, b, c, d, e, f, g, h := uint64(golden), uint64(golden), uint64(golden), uint64(golden), uint64(golden), uint64(golden), uint64(golden), uint64(golden)

	for i := 0; i < 4; i++ {
		a, b, c, d, e, f, g, h = isaacMix64(a, b, c, d, e, f, g, h)
	}

	for i := 0; i < isaacSize; i += 8 {
		a += s.rsl[i]
		b += s.rsl[i+1]
		c += s.rsl[i+2]
		d += s.rsl[i+3]
		e += s.rsl[i+4]
		f += s.rsl[i+5]
		g += s.rsl[i+6]
		h += s.rsl[i+7]
		a, b, c, d, e, f, g, h = isaacMix64(a, b, c, d, e, f, g, h)
		s.mem[i], s.mem[i+1], s.mem[i+2], s.mem[i+3] = a, b, c, d
		s.mem[i+4], s.mem[i+5], s.mem[i+6], s.mem[i+7] = e, f, g, h
	}

	for i := 0; i < isaacSize; i += 8 {
		a += s.mem[i]
		b += s.mem[i+1]
		c += s.mem[i+2]
		d += s.mem[i+3]
		e += s.mem[i+4]
		f += s.mem[i+5]
		g += s.mem[i+6]
		h += s.mem[i+7]
		a, b, c, d, e, f, g, h = isaacMix64(a, b, c, d, e, f, g, h)
		s.mem[i], s.mem[i+1], s.mem[i+2], s.mem[i+3] = a, b, c, d
		s.mem[i+4], s.mem[i+5], s.mem[i+6], s.mem[i+7] = e, f, g, h
	}

	s.generate()
	s.pos = isaacSize
}

func (s *isaac64) ind(x uint64) uint64 {
	return s.mem[(x>>3)&(isaacSize-1)]
}

func (s *isaac64) generate() {
	a, b := s.a, s.b
	s.c++
	b += s.c

	for i := 0; i < isaacSize; i += 4 {
		x := s.mem[i]
		a = ^(a ^ (a << 21)) + s.mem[(i+128)%isaacSize]
		y := s.ind(x) + a + b
		s.mem[i] = y
		b = s.ind(y>>8) + x
		s.rsl[i] = b

		x = s.mem[i+1]
		a = (a ^ (a >> 5)) + s.mem[(i+129)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+1] = y
		b = s.ind(y>>8) + x
		s.rsl[i+1] = b

		x = s.mem[i+2]
		a = (a ^ (a << 12)) + s.mem[(i+130)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+2] = y
		b = s.ind(y>>8) + x
		s.rsl[i+2] = b

		x = s.mem[i+3]
		a = (a ^ (a >> 33)) + s.mem[(i+131)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+3] = y
		b = s.ind(y>>8) + x
		s.rsl[i+3] = b
	}

	s.a, s.b = a, b
}

func (s *isaac64) next() uint64 {
	if s.pos >= isaacSize {
		s.generate()
		s.pos = 0
	}
	v := s.rsl[s.pos]
	s.pos++
	return v
}

func (s *isaac64) Fill(buf []byte) {
	i := 0
	for i < len(buf) && s.spareLen > 0 {
		buf[i] = s.spare[8-s.spareLen]
		s.spareLen--
		i++
	}
	for i < len(buf) {
		v := s.next()
		for b := 0; b < 8; b++ {
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

func (s *isaac64) Finalize() {}
