package utils

import "math"

// Finite はNaN・Infを含まない有限の値かどうかを返します。
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FiniteAll は全ての値が有限である場合にtrueを返します。
func FiniteAll(fs ...float64) bool {
	for _, f := range fs {
		if !Finite(f) {
			return false
		}
	}
	return true
}
