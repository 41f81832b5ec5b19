package models

import "strings"

type Season string

const (
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonFall   Season = "FALL"
	SeasonWinter Season = "WINTER"
)

// seasonRank is the calendar order within one year. Terms must never be
// ordered by the season string itself.
var seasonRank = map[Season]int{
	SeasonSpring: 1,
	SeasonSummer: 2,
	SeasonFall:   3,
	SeasonWinter: 4,
}

// Seasons returns the seasons in calendar order.
func Seasons() []Season {
	return []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}
}

func (s Season) Rank() int {
	return seasonRank[s]
}

func (s Season) Valid() bool {
	_, ok := seasonRank[s]
	return ok
}

func ParseSeason(v string) (Season, bool) {
	s := Season(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}
