package library

import (
	"time"

	"libraryos/internal/catalog"
	"libraryos/internal/membership"
)

// seedPassword is the well-known demo password of the seeded accounts. Only
// its argon2id hash is stored.
const seedPassword = "password"

func seedUsers() ([]membership.User, []membership.Credential, error) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []membership.User{
		{ID: "admin-1", Email: "admin@library.com", Name: "Admin User", Role: membership.RoleAdmin, CreatedAt: created},
		{ID: "member-1", Email: "member@library.com", Name: "John Member", Role: membership.RoleMember, CreatedAt: created},
	}

	creds := make([]membership.Credential, 0, len(users))
	for _, u := range users {
		c, err := membership.NewCredential(u.ID, seedPassword)
		if err != nil {
			return nil, nil, err
		}
		creds = append(creds, c)
	}
	return users, creds, nil
}

func seedBooks() []catalog.Book {
	return []catalog.Book{
		{
			ID:             "1",
			Title:          "The Great Gatsby",
			Author:         "F. Scott Fitzgerald",
			ISBN:           "978-0-7432-7356-5",
			PublishYear:    1925,
			Type:           catalog.TypePhysical,
			Category:       "Fiction",
			Location:       "A1-001",
			Stock:          5,
			AvailableStock: 3,
			QRCode:         "QR_1",
			CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:             "2",
			Title:          "To Kill a Mockingbird",
			Author:         "Harper Lee",
			ISBN:           "978-0-06-112008-4",
			PublishYear:    1960,
			Type:           catalog.TypePhysical,
			Category:       "Fiction",
			Location:       "A1-002",
			Stock:          3,
			AvailableStock: 1,
			QRCode:         "QR_2",
			CreatedAt:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:             "3",
			Title:          "React: The Complete Guide",
			Author:         "Maximilian Schwarzmüller",
			ISBN:           "978-1-234-56789-0",
			PublishYear:    2023,
			Type:           catalog.TypeEbook,
			Category:       "Technology",
			FileURL:        "/files/react-guide.pdf",
			Stock:          catalog.EbookStock,
			AvailableStock: catalog.EbookStock,
			QRCode:         "QR_3",
			CreatedAt:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
}
