// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Type distinguishes shelf copies from downloadable books.
type Type string

const (
	TypePhysical Type = "physical"
	TypeEbook    Type = "ebook"
)

// EbookStock is the sentinel stock carried by ebooks; they never run out in
// practice.
const EbookStock = 999

// Book represents a catalog entry.
type Book struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	ISBN           string    `json:"isbn"`
	PublishYear    int       `json:"publishYear"`
	Type           Type      `json:"type"`
	Category       string    `json:"category"`
	Location       string    `json:"location,omitempty"`
	FileURL        string    `json:"fileUrl,omitempty"`
	Stock          int       `json:"stock"`
	AvailableStock int       `json:"availableStock"`
	QRCode         string    `json:"qrCode"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Draft carries the caller-supplied fields of a new book.
type Draft struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	ISBN           string `json:"isbn"`
	PublishYear    int    `json:"publishYear"`
	Type           Type   `json:"type"`
	Category       string `json:"category"`
	Location       string `json:"location,omitempty"`
	FileURL        string `json:"fileUrl,omitempty"`
	Stock          int    `json:"stock"`
	AvailableStock int    `json:"availableStock"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title          *string `json:"title,omitempty"`
	Author         *string `json:"author,omitempty"`
	ISBN           *string `json:"isbn,omitempty"`
	PublishYear    *int    `json:"publishYear,omitempty"`
	Type           *Type   `json:"type,omitempty"`
	Category       *string `json:"category,omitempty"`
	Location       *string `json:"location,omitempty"`
	FileURL        *string `json:"fileUrl,omitempty"`
	Stock          *int    `json:"stock,omitempty"`
	AvailableStock *int    `json:"availableStock,omitempty"`
}

// NewBook stamps a draft with its identity. The QR code is derived once from
// the id and creation instant and never recomputed.
func NewBook(id string, d Draft, now time.Time) Book {
	return Book{
		ID:             id,
		Title:          d.Title,
		Author:         d.Author,
		ISBN:           d.ISBN,
		PublishYear:    d.PublishYear,
		Type:           d.Type,
		Category:       d.Category,
		Location:       d.Location,
		FileURL:        d.FileURL,
		Stock:          d.Stock,
		AvailableStock: d.AvailableStock,
		QRCode:         QRCode(id, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func QRCode(id string, createdAt time.Time) string {
	return fmt.Sprintf("QR_%s_%d", id, createdAt.UnixMilli())
}

// Apply merges p into b and advances UpdatedAt.
func (b Book) Apply(p Patch, now time.Time) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.PublishYear != nil {
		b.PublishYear = *p.PublishYear
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Location != nil {
		b.Location = *p.Location
	}
	if p.FileURL != nil {
		b.FileURL = *p.FileURL
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if p.AvailableStock != nil {
		b.AvailableStock = *p.AvailableStock
	}
	b.UpdatedAt = now
	return b
}

func (b Book) IsPhysical() bool { return b.Type == TypePhysical }

// Available reports whether at least one copy can be handed out.
func (b Book) Available() bool { return b.AvailableStock > 0 }

// Validate checks the shape of a stored book.
func (b Book) Validate() error {
	if b.ID == "" {
		return errors.New("book: missing id")
	}
	switch b.Type {
	case TypePhysical, TypeEbook:
	default:
		return fmt.Errorf("book %s: unknown type %q", b.ID, b.Type)
	}
	return nil
}
