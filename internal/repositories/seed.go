package repositories

import (
	"context"
	"log"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

// Demo catalog loaded by `seed` and by the in-memory driver.
var (
	SeedBooks = []models.Book{
		{ID: "b1", Title: "The Pragmatic Programmer"},
		{ID: "b2", Title: "Designing Data-Intensive Applications"},
		{ID: "b3", Title: "The Go Programming Language"},
		{ID: "b4", Title: "Structure and Interpretation of Computer Programs"},
		{ID: "b5", Title: "Introduction to Algorithms"},
		{ID: "b6", Title: "Refactoring"},
	}
	SeedMembers = []models.Member{
		{ID: "m1", Name: "Ada Lovelace"},
		{ID: "m2", Name: "Alan Turing"},
		{ID: "m3", Name: "Grace Hopper"},
		{ID: "m4", Name: "Edsger Dijkstra"},
	}
)

// Seed inserts the demo books and members that are not already present.
// Existing records, including their lending state, are left untouched.
func Seed(ctx context.Context, store Store) error {
	return store.Transaction(ctx, func(books lending.BookStore, members lending.MemberStore) error {
		added := 0
		for _, b := range SeedBooks {
			_, found, err := books.FindByID(ctx, b.ID)
			if err != nil {
				return err
			}
			if found {
				continue
			}
			if err := books.Save(ctx, b.Clone()); err != nil {
				return err
			}
			added++
		}
		for _, m := range SeedMembers {
			exists, err := members.ExistsByID(ctx, m.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := members.Save(ctx, m); err != nil {
				return err
			}
			added++
		}
		log.Printf("[INFO] Seed: added %d demo records", added)
		return nil
	})
}
