// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package numparse implements the shared numeric sub-parser used by the
// tokenizers and by automatic cell typing. It parses a decimal number
// prefix of a byte slice into an IEEE-754 double and reports how many
// bytes were consumed. A failed parse yields NaN.
package numparse

import "math"

// Generic parses a number at the start of b, permitting redundant
// leading zeroes in the integer part. It returns the parsed value and
// the number of bytes consumed; the value is NaN if b does not begin
// with a number.
func Generic(b []byte) (float64, int) { return parse(b, true) }

// JSON parses a number at the start of b under JSON rules: an integer
// part of more than one digit must not begin with a zero. A violation
// yields NaN with the bytes still consumed.
func JSON(b []byte) (float64, int) { return parse(b, false) }

func parse(b []byte, allowLeadingZeros bool) (float64, int) {
	var (
		value      float64
		divisor    = 1.0
		digitCount int
		firstDigit byte
		hasDigit   bool
	)

	i := 0
	neg := checkSign(b, &i)

	beforePoint := true
	for ; i < len(b); i++ {
		c := b[i]
		if c == '.' {
			if !beforePoint {
				// Second '.' terminates the parse.
				return final(value/divisor, neg, digitCount, firstDigit, allowLeadingZeros), i
			}
			beforePoint = false
			continue
		}
		if hasDigit && (c == 'e' || c == 'E') {
			i++
			if extra := parseExponent(b, &i); extra != 0 {
				divisor *= extra
			}
			break
		}
		if c < '0' || c > '9' {
			if !hasDigit {
				return math.NaN(), i
			}
			return final(value/divisor, neg, digitCount, firstDigit, allowLeadingZeros), i
		}

		hasDigit = true
		d := c - '0'
		if beforePoint {
			if digitCount == 0 {
				firstDigit = d
			}
			digitCount++
		}
		value = value*10 + float64(d)
		if !beforePoint {
			divisor *= 10
		}
	}
	if !hasDigit {
		return math.NaN(), i
	}
	return final(value/divisor, neg, digitCount, firstDigit, allowLeadingZeros), i
}

func final(v float64, neg bool, digitCount int, firstDigit byte, allowLeadingZeros bool) float64 {
	if !allowLeadingZeros && digitCount > 1 && firstDigit == 0 {
		return math.NaN()
	}
	if neg {
		return -v
	}
	return v
}

func checkSign(b []byte, i *int) bool {
	if *i < len(b) {
		switch b[*i] {
		case '+':
			*i++
		case '-':
			*i++
			return true
		}
	}
	return false
}

// parseExponent consumes the digits of an exponent, with optional sign,
// and returns the extra divisor to fold into the mantissa's divisor.
// If no digits follow, the position is restored to just before the
// exponent marker and 0 is returned.
func parseExponent(b []byte, i *int) float64 {
	p0 := *i - 1 // position of the 'e', to restore on failure
	neg := checkSign(b, i)

	var exp float64
	valid := false
	for ; *i < len(b); *i++ {
		c := b[*i]
		if c < '0' || c > '9' {
			break
		}
		valid = true
		exp = exp*10 + float64(c-'0')
	}
	if !valid {
		*i = p0
		return 0
	}
	if !neg {
		exp = -exp
	}
	return math.Pow(10, exp)
}
