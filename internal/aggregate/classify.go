package aggregate

// DefaultSampleSize is the number of leading bytes inspected by IsBinary.
const DefaultSampleSize = 1024

// IsBinary reports whether content looks binary: true iff a NUL byte occurs in
// the first sampleSize bytes. A non-positive sampleSize means DefaultSampleSize.
//
// This is a heuristic. Text with an early NUL is reported as binary, and binary
// data with no NUL in the sample is reported as text.
func IsBinary(content []byte, sampleSize int) bool {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	n := min(sampleSize, len(content))
	for _, b := range content[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
