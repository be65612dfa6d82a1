package models

import "strings"

// displayGenreLimit caps how many genre names DisplayGenre joins.
const displayGenreLimit = 3

// DisplayGenreLabel is the column heading used for DisplayGenre.
const DisplayGenreLabel = "Genre"

// DisplayGenre joins the names of the book's first three genres with ", ".
// Genres are taken in the order they were loaded.
func DisplayGenre(b *Book) string {
	if b == nil {
		return ""
	}
	n := len(b.Genres)
	if n > displayGenreLimit {
		n = displayGenreLimit
	}
	names := make([]string, 0, n)
	for _, g := range b.Genres[:n] {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}
