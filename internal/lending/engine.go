package lending

import (
	"context"
	"slices"
	"time"

	"library-lending/internal/models"
)

// Engine applies the lending rules on top of the two stores. It holds no
// entity state between calls; every entity it touches is fetched, mutated
// and saved within one operation.
type Engine struct {
	books   BookStore
	members MemberStore
	policy  Policy
	now     Clock
}

// NewEngine builds an Engine. A nil clock falls back to time.Now, and a
// non-positive policy value falls back to its default.
func NewEngine(books BookStore, members MemberStore, policy Policy, clock Clock) *Engine {
	if policy.MaxLoans <= 0 {
		policy.MaxLoans = DefaultMaxLoans
	}
	if policy.LoanPeriodDays <= 0 {
		policy.LoanPeriodDays = DefaultLoanPeriodDays
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{books: books, members: members, policy: policy, now: clock}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Today is the engine's current calendar date at midnight UTC.
func (e *Engine) Today() time.Time {
	return DateOf(e.now())
}

func (e *Engine) defaultDueDate() time.Time {
	return e.Today().AddDate(0, 0, e.policy.LoanPeriodDays)
}

// ─── Loans ────────────────────────────────────────────────────────────────────

// BorrowBook loans bookID to memberID.
//
// Checks run in order and stop at the first failure: book exists, member
// exists, member does not already hold it, nobody else holds it, the member
// is at the head of the reservation queue (if there is one), and the member
// is under the borrow limit.
func (e *Engine) BorrowBook(ctx context.Context, bookID, memberID string) (Result, error) {
	book, found, err := e.books.FindByID(ctx, bookID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	exists, err := e.members.ExistsByID(ctx, memberID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Failure(ReasonMemberNotFound), nil
	}
	return e.borrow(ctx, book, memberID)
}

func (e *Engine) borrow(ctx context.Context, book models.Book, memberID string) (Result, error) {
	if book.HeldBy(memberID) {
		return Failure(ReasonAlreadyLoaned), nil
	}
	if book.OnLoan() {
		return Failure(ReasonBookUnavailable), nil
	}

	dequeued := false
	if len(book.ReservationQueue) > 0 {
		if book.ReservationQueue[0] != memberID {
			return Failure(ReasonAlreadyReserved), nil
		}
		// Borrowing consumes the member's reservation.
		book.ReservationQueue = slices.Clone(book.ReservationQueue[1:])
		dequeued = true
	}

	ok, err := e.canBorrow(ctx, memberID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// The consumed reservation stays cancelled.
		if dequeued {
			if err := e.books.Save(ctx, book); err != nil {
				return Result{}, err
			}
		}
		return Failure(ReasonBorrowLimit), nil
	}

	e.assign(&book, memberID)
	if err := e.books.Save(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

// ReturnBook takes bookID back from memberID and hands it to the first
// eligible member in the reservation queue.
//
// Every queue entry visited during hand-off is removed, including members
// that were skipped because they no longer exist or are at the borrow limit.
// Only the entries after the new holder remain queued.
func (e *Engine) ReturnBook(ctx context.Context, bookID, memberID string) (ResultWithNext, error) {
	book, found, err := e.books.FindByID(ctx, bookID)
	if err != nil {
		return ResultWithNext{}, err
	}
	if !found || !book.HeldBy(memberID) {
		return ResultWithNext{}, nil
	}

	book.LoanedTo = nil
	book.DueDate = nil

	next, remaining, err := e.nextHolder(ctx, book.ReservationQueue)
	if err != nil {
		return ResultWithNext{}, err
	}
	book.ReservationQueue = remaining
	if next != "" {
		e.assign(&book, next)
	}

	if err := e.books.Save(ctx, book); err != nil {
		return ResultWithNext{}, err
	}
	return ResultWithNext{OK: true, NextMemberID: next}, nil
}

// nextHolder scans queue from the front and returns the first eligible
// candidate together with the unvisited tail. With no eligible candidate it
// returns an empty id and an empty queue.
func (e *Engine) nextHolder(ctx context.Context, queue []string) (string, []string, error) {
	for i, candidate := range queue {
		eligible, err := e.eligible(ctx, candidate)
		if err != nil {
			return "", nil, err
		}
		if eligible {
			return candidate, slices.Clone(queue[i+1:]), nil
		}
	}
	return "", []string{}, nil
}

func (e *Engine) eligible(ctx context.Context, memberID string) (bool, error) {
	exists, err := e.members.ExistsByID(ctx, memberID)
	if err != nil || !exists {
		return false, err
	}
	return e.canBorrow(ctx, memberID)
}

func (e *Engine) canBorrow(ctx context.Context, memberID string) (bool, error) {
	held, err := e.books.CountByLoanedTo(ctx, memberID)
	if err != nil {
		return false, err
	}
	return held < e.policy.MaxLoans, nil
}

func (e *Engine) assign(book *models.Book, memberID string) {
	holder := memberID
	due := e.defaultDueDate()
	book.LoanedTo = &holder
	book.DueDate = &due
}

// ExtendLoan moves the due date of a loaned book by days. Negative values
// pull the due date earlier. A loan with no due date is extended from the
// default due date as if it had been borrowed today.
func (e *Engine) ExtendLoan(ctx context.Context, bookID string, days int) (Result, error) {
	if days == 0 {
		return Failure(ReasonInvalidExtension), nil
	}
	book, found, err := e.books.FindByID(ctx, bookID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	if !book.OnLoan() {
		return Failure(ReasonNotLoaned), nil
	}

	base := e.defaultDueDate()
	if book.DueDate != nil {
		// Stored dates may come back in the driver's local zone.
		base = DateOf(book.DueDate.UTC())
	}
	due := base.AddDate(0, 0, days)
	book.DueDate = &due

	if err := e.books.Save(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

// ─── Reservations ─────────────────────────────────────────────────────────────

// ReserveBook appends memberID to the reservation queue of a loaned book.
// Reserving an available book with an empty queue borrows it instead; an
// available book with somebody already queued cannot be jumped.
func (e *Engine) ReserveBook(ctx context.Context, bookID, memberID string) (Result, error) {
	book, found, err := e.books.FindByID(ctx, bookID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	exists, err := e.members.ExistsByID(ctx, memberID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Failure(ReasonMemberNotFound), nil
	}

	if book.HeldBy(memberID) {
		return Failure(ReasonAlreadyLoaned), nil
	}
	if book.QueuePosition(memberID) >= 0 {
		return Failure(ReasonAlreadyReserved), nil
	}

	if !book.OnLoan() {
		if len(book.ReservationQueue) > 0 {
			return Failure(ReasonAlreadyReserved), nil
		}
		return e.borrow(ctx, book, memberID)
	}

	book.ReservationQueue = append(slices.Clone(book.ReservationQueue), memberID)
	if err := e.books.Save(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

// CancelReservation removes memberID from the reservation queue of bookID.
func (e *Engine) CancelReservation(ctx context.Context, bookID, memberID string) (Result, error) {
	book, found, err := e.books.FindByID(ctx, bookID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	exists, err := e.members.ExistsByID(ctx, memberID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Failure(ReasonMemberNotFound), nil
	}

	pos := book.QueuePosition(memberID)
	if pos < 0 {
		return Failure(ReasonNotReserved), nil
	}
	book.ReservationQueue = slices.Delete(slices.Clone(book.ReservationQueue), pos, pos+1)

	if err := e.books.Save(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}
