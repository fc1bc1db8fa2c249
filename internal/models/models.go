package models

import (
	"slices"
	"time"
)

// Book is a catalog entry together with its current lending state.
//
// LoanedTo and DueDate are set together: both nil while the book is on the
// shelf, both non-nil while it is on loan. ReservationQueue is persisted as
// Reservation rows and is never stored on the books table itself.
type Book struct {
	ID               string     `gorm:"primaryKey;size:64" json:"id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	LoanedTo         *string    `gorm:"size:64;index" json:"loanedTo"`
	DueDate          *time.Time `json:"dueDate"`
	ReservationQueue []string   `gorm:"-" json:"reservationQueue"`
}

// OnLoan reports whether someone currently holds the book.
func (b Book) OnLoan() bool {
	return b.LoanedTo != nil
}

// Holder returns the id of the member holding the book.
func (b Book) Holder() (string, bool) {
	if b.LoanedTo == nil {
		return "", false
	}
	return *b.LoanedTo, true
}

// HeldBy reports whether memberID is the current holder.
func (b Book) HeldBy(memberID string) bool {
	holder, ok := b.Holder()
	return ok && holder == memberID
}

// QueuePosition returns the zero-based position of memberID in the
// reservation queue, or -1 if the member is not waiting for this book.
func (b Book) QueuePosition(memberID string) int {
	return slices.Index(b.ReservationQueue, memberID)
}

// Clone returns a copy that shares no mutable state with b.
func (b Book) Clone() Book {
	out := b
	if b.LoanedTo != nil {
		holder := *b.LoanedTo
		out.LoanedTo = &holder
	}
	if b.DueDate != nil {
		due := *b.DueDate
		out.DueDate = &due
	}
	out.ReservationQueue = slices.Clone(b.ReservationQueue)
	if out.ReservationQueue == nil {
		out.ReservationQueue = []string{}
	}
	return out
}

type Member struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`
}

// Reservation is one slot of a book's FIFO wait-list. Position 0 is next in line.
type Reservation struct {
	BookID        string    `gorm:"primaryKey;size:64" json:"book_id"`
	MemberID      string    `gorm:"primaryKey;size:64" json:"member_id"`
	QueuePosition int       `gorm:"not null;index" json:"queue_position"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
