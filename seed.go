package kmerhash

// Symbol codes produced by the default encoders. The order follows
// (b >> 1) & 3 on ASCII: 'A'=0x41 -> 0, 'C'=0x43 -> 1, 'T'=0x54 -> 2,
// 'G'=0x47 -> 3, and the same for lowercase.
const (
	CodeA uint8 = 0
	CodeC uint8 = 1
	CodeT uint8 = 2
	CodeG uint8 = 3
)

// forwardSeed holds the ntHash 1.0.4 per-base seeds indexed by symbol code.
//
// These values are a binary contract: every hash this package produces,
// and every index built from those hashes, depends on them bit-for-bit.
var forwardSeed = [4]uint64{
	CodeA: 0x3c8b_fbb3_95c6_0474,
	CodeC: 0x3193_c185_62a0_2b4c,
	CodeT: 0x2955_49f5_4be2_4456,
	CodeG: 0x2032_3ed0_8257_2324,
}

// reverseComplementSeed[i] == forwardSeed[Complement(i)].
var reverseComplementSeed = [4]uint64{
	CodeA: 0x2955_49f5_4be2_4456,
	CodeC: 0x2032_3ed0_8257_2324,
	CodeT: 0x3c8b_fbb3_95c6_0474,
	CodeG: 0x3193_c185_62a0_2b4c,
}

// ForwardSeeds returns a copy of the forward-strand seed table.
func ForwardSeeds() [4]uint64 { return forwardSeed }

// ReverseComplementSeeds returns a copy of the reverse-complement seed table.
func ReverseComplementSeeds() [4]uint64 { return reverseComplementSeed }

// Complement returns the code of the complementary base (A<->T, C<->G).
// The code order puts complements two apart, so this is a single XOR.
func Complement(code uint8) uint8 {
	return code ^ 2
}
