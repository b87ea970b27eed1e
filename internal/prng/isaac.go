package prng

// isaac implements Bob Jenkins' ISAAC (32-bit) generator, the reference
// algorithm spec §4.B names for the "isaac" variant.
type isaac struct {
	mem [256]uint32
	rsl [256]uint32
	a   uint32
	b   uint32
	c   uint32
	pos int

	spare    [4]byte // unread bytes of the last word Fill took
	spareLen int
}

const isaacSize = 256

func newISAAC(seed []byte) *isaac {
	s := &isaac{}
	words := seedWords32(seed)
	for i := 0; i < isaacSize && i < len(words); i++ {
		s.rsl[i] = words[i]
	}
	s.init(true)
	return s
}

func isaacMix32(a, b, c, d, e, f, g, h uint32) (uint32, uint32, uint32, uint32, uint32, uint32, uint32, uint32) {
	a ^= b << 11
	d += a
	b += c
	b ^= c >> 2
	e += b
	c += d
	c ^= d << 8
	f += c
	d += e
	d ^= e >> 16
	g += d
	e += f
	e ^= f << 10
	h += e
	f += g
	f ^= g >> 4
	a += f
	g += h
	g ^= h << 8
	b += g
	h += a
	h ^= a >> 9
	c += h
	a += b
	return a, b, c, d, e, f, g, h
}

func (s *isaac) init(useSeed bool) {
	var a, b, c, d, e, f, g, h uint32 = 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9

	for i := 0; i < 4; i++ {
		a, b, c, d, e, f, g, h = isaacMix32(a, b, c, d, e, f, g, h)
	}

	for i := 0; i < isaacSize; i += 8 {
		if useSeed {
			a += s.rsl[i]
			b += s.rsl[i+1]
			c += s.rsl[i+2]
			d += s.rsl[i+3]
			e += s.rsl[i+4]
			f += s.rsl[i+5]
			g += s.rsl[i+6]
			h += s.rsl[i+7]
		}
		a, b, c, d, e, f, g, h = isaacMix32(a, b, c, d, e, f, g, h)
		s.mem[i], s.mem[i+1], s.mem[i+2], s.mem[i+3] = a, b, c, d
		s.mem[i+4], s.mem[i+5], s.mem[i+6], s.mem[i+7] = e, f, g, h
	}

	if useSeed {
		for i := 0; i < isaacSize; i += 8 {
			a += s.mem[i]
			b += s.mem[i+1]
			c += s.mem[i+2]
			d += s.mem[i+3]
			e += s.mem[i+4]
			f += s.mem[i+5]
			g += s.mem[i+6]
			h += s.mem[i+7]
			a, b, c, d, e, f, g, h = isaacMix32(a, b, c, d, e, f, g, h)
			s.mem[i], s.mem[i+1], s.mem[i+2], s.mem[i+3] = a, b, c, d
			s.mem[i+4], s.mem[i+5], s.mem[i+6], s.mem[i+7] = e, f, g, h
		}
	}

	s.generate()
	s.pos = isaacSize
}

func (s *isaac) ind(x uint32) uint32 {
	return s.mem[(x>>2)&(isaacSize-1)]
}

func (s *isaac) generate() {
	a, b := s.a, s.b
	s.c++
	b += s.c

	for i := 0; i < isaacSize; i += 4 {
		x := s.mem[i]
		a = (a ^ (a << 13)) + s.mem[(i+128)%isaacSize]
		y := s.ind(x) + a + b
		s.mem[i] = y
		b = s.ind(y>>8) + x
		s.rsl[i] = b

		x = s.mem[i+1]
		a = (a ^ (a >> 6)) + s.mem[(i+129)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+1] = y
		b = s.ind(y>>8) + x
		s.rsl[i+1] = b

		x = s.mem[i+2]
		a = (a ^ (a << 2)) + s.mem[(i+130)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+2] = y
		b = s.ind(y>>8) + x
		s.rsl[i+2] = b

		x = s.mem[i+3]
		a = (a ^ (a >> 16)) + s.mem[(i+131)%isaacSize]
		y = s.ind(x) + a + b
		s.mem[i+3] = y
		b = s.ind(y>>8) + x
		s.rsl[i+3] = b
	}

	s.a, s.b = a, b
}

func (s *isaac) next() uint32 {
	if s.pos >= isaacSize {
		s.generate()
		s.pos = 0
	}
	v := s.rsl[s.pos]
	s.pos++
	return v
}

func (s *isaac) Fill(buf []byte) {
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

func (s *isaac) Finalize() {}
