package mnycrypt

import (
	"crypto/md5"
	"crypto/sha1"
)

// SaltSize is the width of the header salt field.
const SaltSize = 4

// Candidates derives the ordered, de-duplicated list of candidate symmetric
// keys for a blank-password container from its 4-byte header salt.
//
// The recipe list is a heuristic reconstruction of an undocumented key
// derivation; both the recipes and their order are load-bearing. The
// decryptor stops at the first candidate that validates, so more likely
// recipes come first: the plain digest+salt key, then SHA1 combinations
// that include the 128-bit digest step, then zero-fallback combinations
// without it. Reordering could let a wrong key validate spuriously against
// the comparatively weak signature check.
func Candidates(salt [SaltSize]byte) [][]byte {
	var zeros20 [20]byte
	var zeros40 [40]byte

	md := md5.Sum(zeros40[:])   // 128-bit digest step
	s20 := sha1.Sum(zeros20[:]) // direct digests of the zero buffers
	s40 := sha1.Sum(zeros40[:])

	full := concat(md[:], s40[:]) // blank-password block with the MD5 step
	fall := s40[:]                // fallback block without it

	fwd := salt[:]
	rev := reverse(salt[:])

	raw := [][]byte{
		concat(md[:], fwd),
		concat(md[:], rev),
	}
	for _, block := range [][]byte{full, fall} {
		for _, s := range [][]byte{fwd, rev} {
			raw = append(raw,
				sha1Of(s, block, s20[:]),
				sha1Of(s, block),
				sha1Of(block, s),
			)
		}
	}

	return dedup(raw)
}

func sha1Of(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// dedup drops later duplicates, preserving first-occurrence order.
func dedup(keys [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		s := string(k)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, k)
	}
	return out
}
