package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Lamports is an amount of SOL expressed in its smallest unit.
// 1 SOL = 1_000_000_000 lamports, so entry fees keep exactly nine
// fractional digits with no floating point involved.
type Lamports int64

const LamportsPerSOL Lamports = 1_000_000_000

// ParseSOL converts a decimal SOL string ("1.5", "0.000000001") to lamports.
func ParseSOL(s string) (Lamports, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 9 {
		return 0, fmt.Errorf("amount %q has more than 9 fractional digits", s)
	}
	// Right-pad the fraction to exactly nine digits.
	frac = frac + strings.Repeat("0", 9-len(frac))

	var total Lamports
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
			d := Lamports(r - '0')
			if total > (math.MaxInt64-d)/10 {
				return 0, fmt.Errorf("amount %q is out of range", s)
			}
			total = total*10 + d
		}
	}
	if neg {
		total = -total
	}
	return total, nil
}

// SOL renders the amount as a decimal SOL string with trailing zeros trimmed.
func (l Lamports) SOL() string {
	neg := l < 0
	if neg {
		l = -l
	}
	whole := l / LamportsPerSOL
	frac := l % LamportsPerSOL
	s := fmt.Sprintf("%d", whole)
	if frac > 0 {
		f := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
		s = s + "." + f
	}
	if neg {
		s = "-" + s
	}
	return s
}

func (l Lamports) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.SOL())
}

func (l *Lamports) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate bare numbers for convenience.
		var f json.Number
		if err2 := json.Unmarshal(data, &f); err2 != nil {
			return err
		}
		s = f.String()
	}
	v, err := ParseSOL(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}
