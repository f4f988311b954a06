package core

// itoa converts an integer to a string without using fmt, which is a
// lightweight alternative for embedded builds.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}
	if negative {
		digits++
	}

	buf := make([]byte, digits)
	pos := digits - 1
	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}
	if negative {
		buf[0] = '-'
	}
	return string(buf)
}

// utoa converts an unsigned integer to a string.
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	buf := make([]byte, digits)
	pos := digits - 1
	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}
	return string(buf)
}

// Itoa is the exported integer formatter used by response builders.
func Itoa(n int) string {
	return itoa(n)
}

// Utoa is the exported unsigned formatter.
func Utoa(n uint32) string {
	return utoa(n)
}

// Ftoa formats a float with a fixed number of decimal places, rounded
// half away from zero. Response lines carry RPM and millimetre values
// this way (e.g. "120.5", "25.30").
func Ftoa(v float64, decimals int) string {
	negative := v < 0
	if negative {
		v = -v
	}

	scale := 1.0
	for i := 0; i < decimals; i++ {
		scale *= 10.0
	}
	scaled := int64(v*scale + 0.5)

	intPart := scaled
	fracPart := int64(0)
	if decimals > 0 {
		div := int64(scale)
		intPart = scaled / div
		fracPart = scaled % div
	}

	out := itoa(int(intPart))
	if decimals > 0 {
		frac := itoa(int(fracPart))
		for len(frac) < decimals {
			frac = "0" + frac
		}
		out += "." + frac
	}
	if negative && scaled != 0 {
		out = "-" + out
	}
	return out
}
