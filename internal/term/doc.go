// Package term parses academic term names out of spreadsheet headers, keeps the
// registry of known terms and orders them chronologically.
//
// Within a year the order is SPRING, SUMMER, FALL, WINTER. Terms are never
// sorted by their season string.
package term
