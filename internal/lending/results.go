package lending

import "library-lending/internal/models"

// Reason explains why an operation was rejected.
type Reason string

const (
	ReasonBookNotFound     Reason = "BOOK_NOT_FOUND"
	ReasonMemberNotFound   Reason = "MEMBER_NOT_FOUND"
	ReasonAlreadyLoaned    Reason = "ALREADY_LOANED"
	ReasonBookUnavailable  Reason = "BOOK_UNAVAILABLE"
	ReasonAlreadyReserved  Reason = "ALREADY_RESERVED"
	ReasonBorrowLimit      Reason = "BORROW_LIMIT"
	ReasonNotReserved      Reason = "NOT_RESERVED"
	ReasonInvalidExtension Reason = "INVALID_EXTENSION"
	ReasonNotLoaned        Reason = "NOT_LOANED"
	ReasonInvalidRequest   Reason = "INVALID_REQUEST"
)

// Result is the outcome of a mutating operation. Reason is empty when OK.
type Result struct {
	OK     bool
	Reason Reason
}

// Success is an OK result.
func Success() Result {
	return Result{OK: true}
}

// Failure is a rejected result carrying reason.
func Failure(reason Reason) Result {
	return Result{Reason: reason}
}

// ResultWithNext is the outcome of ReturnBook. NextMemberID names the member
// the book was handed off to, empty when it went back on the shelf.
type ResultWithNext struct {
	OK           bool
	NextMemberID string
}

// HandedOff reports whether the returned book was assigned to a queued member.
func (r ResultWithNext) HandedOff() bool {
	return r.OK && r.NextMemberID != ""
}

// ReservationPosition is a zero-based place in one book's queue.
type ReservationPosition struct {
	BookID   string
	Position int
}

// MemberSummary lists a member's current loans and queue positions.
type MemberSummary struct {
	OK           bool
	Reason       Reason
	Loans        []models.Book
	Reservations []ReservationPosition
}
