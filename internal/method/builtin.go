package method

import "wipeengine/internal/wipe"

func registerBuiltins(e *Engine) {
	e.Register("zero", buildZero)
	e.Register("one", buildOne)
	e.Register("verify_zero", buildVerifyZero)
	e.Register("verify_one", buildVerifyOne)
	e.Register("random", buildRandom)
	e.Register("prng", buildRandom)
	e.Register("stream", buildRandom)
	e.Register("dodshort", buildDODShort)
	e.Register("dod522022m", buildDOD522022m)
	e.Register("gutmann", buildGutmann)
	e.Register("ops2", buildOPS2)
	e.Register("is5enh", buildIS5Enhanced)
}

func writePass(p wipe.Pattern) wipe.PassSpec {
	return wipe.PassSpec{Pattern: p, Kind: wipe.PassWrite}
}

func buildZero(int) Expansion {
	return Expansion{
		Passes:           []wipe.PassSpec{writePass(wipe.Const(0x00))},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

func buildOne(int) Expansion {
	return Expansion{
		Passes:           []wipe.PassSpec{writePass(wipe.Const(0xFF))},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

func buildVerifyZero(int) Expansion {
	return Expansion{
		Passes: []wipe.PassSpec{
			{Pattern: wipe.Const(0x00), Kind: wipe.PassVerify},
		},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

func buildVerifyOne(int) Expansion {
	return Expansion{
		Passes: []wipe.PassSpec{
			{Pattern: wipe.Const(0xFF), Kind: wipe.PassVerify},
		},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

func buildRandom(int) Expansion {
	return Expansion{
		Passes:           []wipe.PassSpec{writePass(wipe.Random())},
		Repeatable:       true,
		AllowsFinalBlank: true,
	}
}

// buildDODShort is the 3-pass short DOD sequence: random, 0xFF, random
// (verified).
func buildDODShort(int) Expansion {
	return Expansion{
		Passes: []wipe.PassSpec{
			writePass(wipe.Random()),
			writePass(wipe.Const(0xFF)),
			writePass(wipe.Random()),
		},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

// buildDOD522022m is the 7-pass DoD 5220.22-M sequence.
func buildDOD522022m(int) Expansion {
	return Expansion{
		Passes: []wipe.PassSpec{
			writePass(wipe.Const(0x00)),
			writePass(wipe.Const(0xFF)),
			writePass(wipe.Random()),
			writePass(wipe.Const(0x00)),
			writePass(wipe.Const(0x00)),
			writePass(wipe.Const(0xFF)),
			writePass(wipe.Random()),
		},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}

// gutmannFixedPatterns is the standard 27-pass fixed-pattern block (passes
// 5-31 of the full 35-pass sequence), sandwiched between 4 random passes on
// each side.
var gutmannFixedPatterns = [][]byte{
	{0x55}, {0xAA},
	{0x92, 0x49, 0x24}, {0x49, 0x24, 0x92}, {0x24, 0x92, 0x49},
	{0x00}, {0x11}, {0x22}, {0x33}, {0x44}, {0x55}, {0x66}, {0x77},
	{0x88}, {0x99}, {0xAA}, {0xBB}, {0xCC}, {0xDD}, {0xEE}, {0xFF},
	{0x92, 0x49, 0x24}, {0x49, 0x24, 0x92}, {0x24, 0x92, 0x49},
	{0x6D, 0xB6, 0xDB}, {0xB6, 0xDB, 0x6D}, {0xDB, 0x6D, 0xB6},
}

// buildGutmann builds the 35-pass Gutmann sequence: 4 random, 27 fixed
// patterns, 4 random. Final pass is verified.
func buildGutmann(int) Expansion {
	passes := make([]wipe.PassSpec, 0, 35)
	for i := 0; i < 4; i++ {
		passes = append(passes, writePass(wipe.Random()))
	}
	for _, p := range gutmannFixedPatterns {
		passes = append(passes, writePass(wipe.Const(p...)))
	}
	for i := 0; i < 4; i++ {
		passes = append(passes, writePass(wipe.Random()))
	}
	return Expansion{
		Passes:           passes,
		Repeatable:       true,
		AllowsFinalBlank: true,
	}
}

// buildOPS2 implements RCMP TSSIT OPS-II: (0x00, 0xFF) repeated `rounds`
// times, terminated by a single random pass labelled "ops2 final". Because
// OPS-II's own definition already consumes the rounds count for its
// alternation, this builder is not Repeatable — the engine must not repeat
// the whole sequence again (see DESIGN.md).
func buildOPS2(rounds int) Expansion {
	passes := make([]wipe.PassSpec, 0, rounds*2+1)
	for i := 0; i < rounds; i++ {
		passes = append(passes, writePass(wipe.Const(0x00)))
		passes = append(passes, writePass(wipe.Const(0xFF)))
	}
	final := writePass(wipe.Random())
	final.Kind = wipe.PassFinalOps2
	passes = append(passes, final)

	return Expansion{
		Passes:           passes,
		Repeatable:       false,
		AllowsFinalBlank: true,
	}
}

// buildIS5Enhanced implements HMG IS5 Enhanced: 0x00, 0xFF, random
// (verified unconditionally, regardless of the global verify policy).
func buildIS5Enhanced(int) Expansion {
	randomPass := writePass(wipe.Random())
	randomPass.AlwaysVerify = true
	randomPass.Verify = true

	return Expansion{
		Passes: []wipe.PassSpec{
			writePass(wipe.Const(0x00)),
			writePass(wipe.Const(0xFF)),
			randomPass,
		},
		Repeatable:       true,
		AllowsFinalBlank: false,
	}
}
