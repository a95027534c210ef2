package writer

// MaxSuffixes is the capacity of the filename disambiguator sequence:
// the bare name, "b" through "z", then "aa" through "zz".
const MaxSuffixes = 702

// SuffixSeq is a lazy, restartable iterator over the disambiguator
// sequence. The values are strictly increasing under (length, lexical)
// order and the sequence is finite; exhaustion is explicit.
type SuffixSeq struct {
	next int
}

// Suffixes returns a fresh iterator positioned at the bare (empty) slot.
func Suffixes() *SuffixSeq {
	return &SuffixSeq{}
}

// Next yields the following suffix, or ok=false once all MaxSuffixes
// values have been produced.
func (s *SuffixSeq) Next() (suffix string, ok bool) {
	if s.next >= MaxSuffixes {
		return "", false
	}
	suffix = suffixAt(s.next)
	s.next++
	return suffix, true
}

// suffixAt maps an index onto the sequence "", "b", ..., "z", "aa",
// ..., "zz" via bijective base-26. The offset by one skips the single
// letter "a": the bare name takes its place.
func suffixAt(i int) string {
	if i == 0 {
		return ""
	}

	n := i + 1
	var buf [2]byte
	pos := len(buf)
	for n > 0 {
		n--
		pos--
		buf[pos] = byte('a' + n%26)
		n /= 26
	}
	return string(buf[pos:])
}
