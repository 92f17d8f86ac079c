package service

import (
	"crypto/cipher"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
)

// Skinny64BlockSize is the Skinny-64 block size in bytes.
const Skinny64BlockSize = 8

var (
	skinnySbox = [16]byte{0xc, 0x6, 0x9, 0x0, 0x1, 0xa, 0x2, 0xb, 0x3, 0x8, 0x5, 0xd, 0x4, 0xe, 0x7, 0xf}

	skinnySboxInv = [16]byte{0x3, 0x4, 0x6, 0x8, 0xc, 0xa, 0x1, 0xe, 0x9, 0x2, 0x5, 0x7, 0x0, 0xb, 0xd, 0xf}

	// tweakey cell permutation: next[i] = current[skinnyPT[i]]
	skinnyPT = [16]int{9, 15, 8, 13, 10, 14, 12, 11, 0, 1, 2, 3, 4, 5, 6, 7}

	// ShiftRows rotates row r right by r cells: next[i] = current[skinnyShift[i]]
	skinnyShift = [16]int{0, 1, 2, 3, 7, 4, 5, 6, 10, 11, 8, 9, 13, 14, 15, 12}
)

// skinny64 is the Skinny-64 tweakable block cipher used without a tweak. The
// tweakey schedule is expanded once so Encrypt and Decrypt are allocation-free and
// safe for concurrent use.
type skinny64 struct {
	roundKeys [][8]byte
	constants []byte
}

// NewSkinny64 returns a Skinny-64 cipher.Block. The key length selects the variant:
// 8 bytes (64-64, 32 rounds), 16 bytes (64-128, 36 rounds) or 24 bytes (64-192, 40
// rounds). Day keys use the 192-bit variant.
func NewSkinny64(key []byte) (cipher.Block, error) {
	var rounds int
	switch len(key) {
	case 8:
		rounds = 32
	case 16:
		rounds = 36
	case cryptoDomain.DayKeySize:
		rounds = 40
	default:
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	tks := make([][16]byte, len(key)/8)
	for i := range tks {
		tks[i] = loadNibbles(key[i*8 : i*8+8])
	}

	s := &skinny64{
		roundKeys: make([][8]byte, rounds),
		constants: make([]byte, rounds),
	}

	var rc byte
	for r := 0; r < rounds; r++ {
		rc = ((rc << 1) & 0x3f) | (((rc >> 5) ^ (rc >> 4) ^ 1) & 1)
		s.constants[r] = rc

		for i := 0; i < 8; i++ {
			for _, tk := range tks {
				s.roundKeys[r][i] ^= tk[i]
			}
		}

		for j := range tks {
			var next [16]byte
			for i := range next {
				next[i] = tks[j][skinnyPT[i]]
			}
			for i := 0; i < 8; i++ {
				x := next[i]
				switch j {
				case 1:
					next[i] = ((x << 1) & 0xe) | (((x >> 3) ^ (x >> 2)) & 1)
				case 2:
					next[i] = (x >> 1) | (((x ^ (x >> 3)) & 1) << 3)
				}
			}
			tks[j] = next
		}
	}

	return s, nil
}

// BlockSize returns the cipher's block size.
func (s *skinny64) BlockSize() int {
	return Skinny64BlockSize
}

// Encrypt encrypts the first block in src into dst.
func (s *skinny64) Encrypt(dst, src []byte) {
	if len(src) < Skinny64BlockSize || len(dst) < Skinny64BlockSize {
		panic("skinny64: input not full block")
	}

	st := loadNibbles(src[:Skinny64BlockSize])
	for r := range s.roundKeys {
		for i := range st {
			st[i] = skinnySbox[st[i]]
		}

		rc := s.constants[r]
		st[0] ^= rc & 0xf
		st[4] ^= (rc >> 4) & 0x3
		st[8] ^= 0x2

		for i := 0; i < 8; i++ {
			st[i] ^= s.roundKeys[r][i]
		}

		var shifted [16]byte
		for i := range shifted {
			shifted[i] = st[skinnyShift[i]]
		}

		for c := 0; c < 4; c++ {
			a, b, x, d := shifted[c], shifted[4+c], shifted[8+c], shifted[12+c]
			st[c] = a ^ x ^ d
			st[4+c] = a
			st[8+c] = b ^ x
			st[12+c] = a ^ x
		}
	}
	storeNibbles(dst, st)
}

// Decrypt decrypts the first block in src into dst.
func (s *skinny64) Decrypt(dst, src []byte) {
	if len(src) < Skinny64BlockSize || len(dst) < Skinny64BlockSize {
		panic("skinny64: input not full block")
	}

	st := loadNibbles(src[:Skinny64BlockSize])
	for r := len(s.roundKeys) - 1; r >= 0; r-- {
		var shifted [16]byte
		for c := 0; c < 4; c++ {
			n0, n1, n2, n3 := st[c], st[4+c], st[8+c], st[12+c]
			x := n3 ^ n1
			shifted[c] = n1
			shifted[4+c] = n2 ^ x
			shifted[8+c] = x
			shifted[12+c] = n0 ^ n3
		}

		for i := range shifted {
			st[skinnyShift[i]] = shifted[i]
		}

		for i := 0; i < 8; i++ {
			st[i] ^= s.roundKeys[r][i]
		}

		rc := s.constants[r]
		st[0] ^= rc & 0xf
		st[4] ^= (rc >> 4) & 0x3
		st[8] ^= 0x2

		for i := range st {
			st[i] = skinnySboxInv[st[i]]
		}
	}
	storeNibbles(dst, st)
}

// loadNibbles splits 8 bytes into 16 cells, high nibble first.
func loadNibbles(b []byte) [16]byte {
	var cells [16]byte
	for i := 0; i < 8; i++ {
		cells[2*i] = b[i] >> 4
		cells[2*i+1] = b[i] & 0xf
	}
	return cells
}

func storeNibbles(dst []byte, cells [16]byte) {
	for i := 0; i < 8; i++ {
		dst[i] = cells[2*i]<<4 | cells[2*i+1]
	}
}
