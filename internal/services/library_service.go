package services

import (
	"context"
	"log"
	"sync"
	"time"

	"library-lending/internal/lending"
	"library-lending/internal/metrics"
	"library-lending/internal/models"
	"library-lending/internal/repositories"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService defines the application-level operations of the library system.
type LibraryService interface {
	BorrowBook(ctx context.Context, bookID, memberID string) (lending.Result, error)
	ReturnBook(ctx context.Context, bookID, memberID string) (lending.ResultWithNext, error)
	ReserveBook(ctx context.Context, bookID, memberID string) (lending.Result, error)
	CancelReservation(ctx context.Context, bookID, memberID string) (lending.Result, error)
	ExtendLoan(ctx context.Context, bookID string, days int) (lending.Result, error)

	SearchBooks(ctx context.Context, filter lending.SearchFilter) ([]models.Book, error)
	OverdueBooks(ctx context.Context, today time.Time) ([]models.Book, error)
	MemberSummary(ctx context.Context, memberID string) (lending.MemberSummary, error)
	Today() time.Time

	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id string) (models.Book, bool, error)
	ListMembers(ctx context.Context) ([]models.Member, error)

	CreateBook(ctx context.Context, id, title string) (lending.Result, error)
	UpdateBook(ctx context.Context, id, title string) (lending.Result, error)
	DeleteBook(ctx context.Context, id string) (lending.Result, error)
	CreateMember(ctx context.Context, id, name string) (lending.Result, error)
	UpdateMember(ctx context.Context, id, name string) (lending.Result, error)
	DeleteMember(ctx context.Context, id string) (lending.Result, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

// libraryService is the single writer in front of the lending engine. Every
// mutating call holds writeMu and runs inside one storage transaction, so the
// engine's check-then-act sequences never interleave within this process.
// Reads skip the lock and may observe a write in progress.
type libraryService struct {
	store   repositories.Store
	policy  lending.Policy
	clock   lending.Clock
	metrics *metrics.Metrics

	writeMu sync.Mutex
	reader  *lending.Engine
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(store repositories.Store, policy lending.Policy, clock lending.Clock, m *metrics.Metrics) LibraryService {
	return &libraryService{
		store:   store,
		policy:  policy,
		clock:   clock,
		metrics: m,
		reader:  lending.NewEngine(store.Books(), store.Members(), policy, clock),
	}
}

func (s *libraryService) engine(books lending.BookStore, members lending.MemberStore) *lending.Engine {
	return lending.NewEngine(books, members, s.policy, s.clock)
}

// write runs fn against an engine bound to a fresh transaction.
func (s *libraryService) write(ctx context.Context, fn func(e *lending.Engine) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.store.Transaction(ctx, func(books lending.BookStore, members lending.MemberStore) error {
		return fn(s.engine(books, members))
	})
}

// mutate runs one Result-returning engine operation with logging and metrics.
// subject describes the target for log lines, e.g. "book b1 / member m1".
func (s *libraryService) mutate(ctx context.Context, op, subject string, fn func(e *lending.Engine) (lending.Result, error)) (lending.Result, error) {
	start := time.Now()
	var res lending.Result
	err := s.write(ctx, func(e *lending.Engine) error {
		var err error
		res, err = fn(e)
		return err
	})

	switch {
	case err != nil:
		s.observe(op, metrics.OutcomeError, start)
		log.Printf("[ERROR] %s: transaction failed for %s: %v", op, subject, err)
		return lending.Result{}, err
	case !res.OK:
		s.observe(op, string(res.Reason), start)
		log.Printf("[WARN] %s: %s rejected: %s", op, subject, res.Reason)
	default:
		s.observe(op, metrics.OutcomeOK, start)
		log.Printf("[INFO] %s: %s ok", op, subject)
	}
	return res, nil
}

func (s *libraryService) observe(op, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, outcome, start)
	}
}

// ─── Loans ────────────────────────────────────────────────────────────────────

func (s *libraryService) BorrowBook(ctx context.Context, bookID, memberID string) (lending.Result, error) {
	return s.mutate(ctx, "BorrowBook", "book "+bookID+" / member "+memberID, func(e *lending.Engine) (lending.Result, error) {
		return e.BorrowBook(ctx, bookID, memberID)
	})
}

// ReturnBook returns the book and, when somebody is queued, hands it off
// within the same transaction.
func (s *libraryService) ReturnBook(ctx context.Context, bookID, memberID string) (lending.ResultWithNext, error) {
	const op = "ReturnBook"
	start := time.Now()
	var res lending.ResultWithNext
	err := s.write(ctx, func(e *lending.Engine) error {
		var err error
		res, err = e.ReturnBook(ctx, bookID, memberID)
		return err
	})

	switch {
	case err != nil:
		s.observe(op, metrics.OutcomeError, start)
		log.Printf("[ERROR] %s: transaction failed for book %s / member %s: %v", op, bookID, memberID, err)
		return lending.ResultWithNext{}, err
	case !res.OK:
		s.observe(op, metrics.OutcomeFailed, start)
		log.Printf("[WARN] %s: book %s is not on loan to member %s", op, bookID, memberID)
	case res.HandedOff():
		s.observe(op, metrics.OutcomeOK, start)
		if s.metrics != nil {
			s.metrics.IncrementHandoffs()
		}
		log.Printf("[INFO] %s: book %s returned by %s, handed off to %s", op, bookID, memberID, res.NextMemberID)
	default:
		s.observe(op, metrics.OutcomeOK, start)
		log.Printf("[INFO] %s: book %s returned by %s, back on the shelf", op, bookID, memberID)
	}
	return res, nil
}

func (s *libraryService) ExtendLoan(ctx context.Context, bookID string, days int) (lending.Result, error) {
	return s.mutate(ctx, "ExtendLoan", "book "+bookID, func(e *lending.Engine) (lending.Result, error) {
		return e.ExtendLoan(ctx, bookID, days)
	})
}

// ─── Reservations ─────────────────────────────────────────────────────────────

func (s *libraryService) ReserveBook(ctx context.Context, bookID, memberID string) (lending.Result, error) {
	return s.mutate(ctx, "ReserveBook", "book "+bookID+" / member "+memberID, func(e *lending.Engine) (lending.Result, error) {
		return e.ReserveBook(ctx, bookID, memberID)
	})
}

func (s *libraryService) CancelReservation(ctx context.Context, bookID, memberID string) (lending.Result, error) {
	return s.mutate(ctx, "CancelReservation", "book "+bookID+" / member "+memberID, func(e *lending.Engine) (lending.Result, error) {
		return e.CancelReservation(ctx, bookID, memberID)
	})
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *libraryService) SearchBooks(ctx context.Context, filter lending.SearchFilter) ([]models.Book, error) {
	return s.reader.SearchBooks(ctx, filter)
}

func (s *libraryService) OverdueBooks(ctx context.Context, today time.Time) ([]models.Book, error) {
	return s.reader.OverdueBooks(ctx, today)
}

func (s *libraryService) MemberSummary(ctx context.Context, memberID string) (lending.MemberSummary, error) {
	return s.reader.MemberSummary(ctx, memberID)
}

func (s *libraryService) Today() time.Time {
	return s.reader.Today()
}

func (s *libraryService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.reader.AllBooks(ctx)
}

func (s *libraryService) GetBook(ctx context.Context, id string) (models.Book, bool, error) {
	return s.reader.FindBook(ctx, id)
}

func (s *libraryService) ListMembers(ctx context.Context) ([]models.Member, error) {
	return s.reader.AllMembers(ctx)
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

func (s *libraryService) CreateBook(ctx context.Context, id, title string) (lending.Result, error) {
	return s.mutate(ctx, "CreateBook", "book "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.CreateBook(ctx, id, title)
	})
}

func (s *libraryService) UpdateBook(ctx context.Context, id, title string) (lending.Result, error) {
	return s.mutate(ctx, "UpdateBook", "book "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.UpdateBook(ctx, id, title)
	})
}

func (s *libraryService) DeleteBook(ctx context.Context, id string) (lending.Result, error) {
	return s.mutate(ctx, "DeleteBook", "book "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.DeleteBook(ctx, id)
	})
}

func (s *libraryService) CreateMember(ctx context.Context, id, name string) (lending.Result, error) {
	return s.mutate(ctx, "CreateMember", "member "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.CreateMember(ctx, id, name)
	})
}

func (s *libraryService) UpdateMember(ctx context.Context, id, name string) (lending.Result, error) {
	return s.mutate(ctx, "UpdateMember", "member "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.UpdateMember(ctx, id, name)
	})
}

func (s *libraryService) DeleteMember(ctx context.Context, id string) (lending.Result, error) {
	return s.mutate(ctx, "DeleteMember", "member "+id, func(e *lending.Engine) (lending.Result, error) {
		return e.DeleteMember(ctx, id)
	})
}
