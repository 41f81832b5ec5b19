package importer

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindBlank Kind = iota
	KindNotApplicable
	KindNumber
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindNotApplicable:
		return "n/a"
	case KindNumber:
		return "number"
	default:
		return "invalid"
	}
}

// Cell is the parsed form of one term-column value. Value is only meaningful
// for KindNumber.
type Cell struct {
	Kind  Kind
	Value int
	Raw   string
}

// maxCellValue bounds a cell so the count fits every column type.
var maxCellValue = decimal.NewFromInt(math.MaxInt32)

// ParseCell classifies a raw cell. Fractions are truncated toward zero.
// Negative numbers and values above math.MaxInt32 are invalid.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	c := Cell{Raw: raw}

	switch strings.ToLower(s) {
	case "":
		c.Kind = KindBlank
		return c
	case "n/a", "na":
		c.Kind = KindNotApplicable
		return c
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.Truncate(0).GreaterThan(maxCellValue) {
		c.Kind = KindInvalid
		return c
	}
	c.Kind = KindNumber
	c.Value = int(d.IntPart())
	return c
}
