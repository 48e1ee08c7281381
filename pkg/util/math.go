package util

import "golang.org/x/exp/constraints"

// Min returns the smallest of its arguments.
func Min[T constraints.Ordered](first T, rest ...T) T {
	m := first
	for _, v := range rest {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest of its arguments.
func Max[T constraints.Ordered](first T, rest ...T) T {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}

// AddSaturating returns a+b, or the maximum uint64 if the sum would overflow.
func AddSaturating(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}
