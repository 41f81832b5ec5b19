package term

import (
	"regexp"
	"strings"

	"avault-backend/internal/models"
)

// Key identifies a term independent of storage.
type Key struct {
	Season models.Season
	Year   int
}

func (k Key) Name() string {
	return models.TermName(k.Season, k.Year)
}

// Before reports whether k is chronologically before o.
func (k Key) Before(o Key) bool {
	return models.AcademicTerm{Season: k.Season, Year: k.Year}.Before(models.AcademicTerm{Season: o.Season, Year: o.Year})
}

// yearPattern matches a 19xx/20xx token that is not part of a longer digit run.
var yearPattern = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)

// Parse extracts a season and year from a free-text header such as
// "Spring 2024", "SUMMER  2018", "Fall2023" or "2024 spring". Both parts are
// required. When several year tokens are present the first one wins.
func Parse(header string) (Key, bool) {
	upper := strings.ToUpper(strings.TrimSpace(header))
	if upper == "" {
		return Key{}, false
	}

	m := yearPattern.FindStringSubmatch(upper)
	if m == nil {
		return Key{}, false
	}
	year := 0
	for _, r := range m[1] {
		year = year*10 + int(r-'0')
	}

	for _, s := range models.Seasons() {
		if strings.Contains(upper, string(s)) {
			return Key{Season: s, Year: year}, true
		}
	}
	return Key{}, false
}
