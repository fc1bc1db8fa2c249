// Package lending holds the lending rules: borrow limits, reservation
// ordering, hand-off on return and loan extension. The engine is stateless;
// all state lives in the entities held by the BookStore and MemberStore.
//
// The engine performs check-then-act sequences without mutual exclusion.
// Callers must serialize mutating operations (see services.LibraryService).
package lending

import (
	"context"
	"time"

	"library-lending/internal/models"
)

//go:generate mockgen -source=lending.go -destination=mocks/stores.go -package=mocks

// BookStore is the persistence collaborator for books.
type BookStore interface {
	FindByID(ctx context.Context, id string) (models.Book, bool, error)
	FindAll(ctx context.Context) ([]models.Book, error)
	// Save upserts by id, including the reservation queue.
	Save(ctx context.Context, book models.Book) error
	Delete(ctx context.Context, book models.Book) error
	// CountByLoanedTo counts books currently loaned to memberID.
	CountByLoanedTo(ctx context.Context, memberID string) (int, error)
}

// MemberStore is the persistence collaborator for members.
type MemberStore interface {
	FindByID(ctx context.Context, id string) (models.Member, bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindAll(ctx context.Context) ([]models.Member, error)
	Save(ctx context.Context, member models.Member) error
	Delete(ctx context.Context, member models.Member) error
}

// Defaults used when a Policy field is not positive.
const (
	DefaultMaxLoans       = 5
	DefaultLoanPeriodDays = 14
)

// Policy carries the tunable lending rules.
type Policy struct {
	// MaxLoans is the number of books a member may hold at once.
	MaxLoans int
	// LoanPeriodDays is added to today to compute a new due date.
	LoanPeriodDays int
}

// DefaultPolicy allows five concurrent loans of fourteen days each.
func DefaultPolicy() Policy {
	return Policy{MaxLoans: DefaultMaxLoans, LoanPeriodDays: DefaultLoanPeriodDays}
}

// Clock returns the current instant. Only the calendar date is used.
type Clock func() time.Time

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SearchFilter narrows SearchBooks. Nil fields match everything.
type SearchFilter struct {
	TitleContains *string
	LoanedTo      *string
	Available     *bool
}
