package importer

import (
	"fmt"
	"strings"

	"avault-backend/internal/models"
	"avault-backend/internal/term"
)

const (
	colItem      = "ITEM"
	colLocation  = "LOCATION"
	colCondition = "CONDITION"
	colSerial    = "S/N - FREQUENCY"
)

type termColumn struct {
	index  int
	header string
	key    term.Key
	term   models.AcademicTerm
}

// layout maps the header row onto metadata and term columns.
type layout struct {
	item, location, condition, serial int
	terms                             []termColumn
	skipped                           []string
}

func detectLayout(headers []string) (layout, error) {
	l := layout{item: -1, location: -1, condition: -1, serial: -1}
	for i, h := range headers {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case colItem:
			if l.item < 0 {
				l.item = i
			}
			continue
		case colLocation:
			l.location = i
			continue
		case colCondition:
			l.condition = i
			continue
		case colSerial:
			l.serial = i
			continue
		}

		key, ok := term.Parse(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				l.skipped = append(l.skipped, h)
			}
			continue
		}
		l.terms = append(l.terms, termColumn{index: i, header: h, key: key})
	}

	if l.item < 0 {
		return layout{}, fmt.Errorf("%w: no %q column in header row", ErrMalformedInput, "Item")
	}
	return l, nil
}

func (l layout) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
