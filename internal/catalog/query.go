package catalog

import "strings"

// Criteria narrows a book listing. Zero-valued fields match everything.
type Criteria struct {
	Category  string
	Type      Type
	Available *bool
}

// Search matches query case-insensitively against title, author and
// category, and verbatim against the ISBN. Results keep collection order.
func Search(books []Book, query string) []Book {
	lower := strings.ToLower(query)
	out := []Book{}
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), lower) ||
			strings.Contains(strings.ToLower(b.Author), lower) ||
			strings.Contains(b.ISBN, query) ||
			strings.Contains(strings.ToLower(b.Category), lower) {
			out = append(out, b)
		}
	}
	return out
}

// Filter keeps the books that satisfy every supplied criterion.
func Filter(books []Book, c Criteria) []Book {
	out := []Book{}
	for _, b := range books {
		if c.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

func (c Criteria) Matches(b Book) bool {
	if c.Category != "" && b.Category != c.Category {
		return false
	}
	if c.Type != "" && b.Type != c.Type {
		return false
	}
	if c.Available != nil && b.Available() != *c.Available {
		return false
	}
	return true
}
