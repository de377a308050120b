package vmbench

// Add returns a + b. Overflow wraps around as in two's complement.
func Add(a, b int32) int32 {
	return a + b
}

// ReverseBuff32 returns a copy of input with the byte order reversed.
// input is left untouched.
func ReverseBuff32(input []byte) []byte {
	result := make([]byte, len(input))
	for i, b := range input {
		result[len(input)-1-i] = b
	}
	return result
}
