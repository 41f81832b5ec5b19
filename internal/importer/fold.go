package importer

import (
	"unicode/utf8"
)

type rowKind int

const (
	rowSkip rowKind = iota
	rowCategory
	rowItem
	rowOrphan
)

func (k rowKind) String() string {
	switch k {
	case rowCategory:
		return "category"
	case rowItem:
		return "item"
	case rowOrphan:
		return "orphan"
	default:
		return "skipped"
	}
}

// classify decides what a row is from its name, its parsed term cells and
// whether a category is currently open.
//
//	blank name                         -> skip
//	no numbers, name longer than 2     -> category header
//	numbers, open category             -> item
//	numbers, no category yet           -> orphan
func classify(name string, cells []Cell, haveCategory bool) rowKind {
	if name == "" {
		return rowSkip
	}
	hasNumber := false
	for _, c := range cells {
		if c.Kind == KindNumber {
			hasNumber = true
			break
		}
	}
	switch {
	case !hasNumber && utf8.RuneCountInString(name) > 2:
		return rowCategory
	case hasNumber && haveCategory:
		return rowItem
	case hasNumber:
		return rowOrphan
	default:
		return rowSkip
	}
}
