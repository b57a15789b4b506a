package main

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// angleExpr matches a multiple of pi: optional sign, optional coefficient, optional divisor.
// Examples: "pi", "-pi/2", "3*pi/4", "0.5pi", "+2 * pi".
var angleExpr = regexp.MustCompile(`^([+-]?)\s*(\d*\.?\d*)\s*\*?\s*pi\s*(?:/\s*(\d*\.?\d+))?$`)

// parseAngle reads one angle given as a plain number or as a multiple of pi.
func parseAngle(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if !finite(v) {
			return 0, fmt.Errorf("%w: angle %q is not finite", ErrInvalidParameter, s)
		}
		return v, nil
	}

	m := angleExpr.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: cannot parse angle %q", ErrInvalidParameter, s)
	}
	v := math.Pi
	if m[2] != "" {
		c, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad coefficient in angle %q", ErrInvalidParameter, s)
		}
		v *= c
	}
	if m[3] != "" {
		d, err := strconv.ParseFloat(m[3], 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("%w: bad divisor in angle %q", ErrInvalidParameter, s)
		}
		v /= d
	}
	if m[1] == "-" {
		v = -v
	}
	return v, nil
}

// parseAngleList parses a comma-separated list of angles such as "0.3, pi/8".
// Empty entries are skipped.
func parseAngleList(input string) ([]float64, error) {
	var angles []float64
	for _, part := range strings.Split(input, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parseAngle(part)
		if err != nil {
			return nil, err
		}
		angles = append(angles, v)
	}
	return angles, nil
}

// formatAngle writes v as n*pi/d when it is a multiple of pi/8 up to 2*pi, else in %g form.
func formatAngle(v float64) string {
	k := v / (math.Pi / 8)
	n := math.Round(k)
	if n == 0 || math.Abs(n) > 16 || math.Abs(k-n) > 1e-9 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	num, den := int(n), 8
	for den > 1 && num%2 == 0 {
		num /= 2
		den /= 2
	}
	sign := ""
	if num < 0 {
		sign, num = "-", -num
	}
	coef := "pi"
	if num != 1 {
		coef = strconv.Itoa(num) + "*pi"
	}
	if den == 1 {
		return sign + coef
	}
	return fmt.Sprintf("%s%s/%d", sign, coef, den)
}
