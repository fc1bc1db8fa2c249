package lending_test

import (
	"context"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/suite"

	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/repositories"
)

var fixedNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

type EngineSuite struct {
	suite.Suite
	ctx    context.Context
	store  *repositories.InMemory
	engine *lending.Engine
	today  time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repositories.NewInMemory()
	s.engine = lending.NewEngine(s.store.Books(), s.store.Members(), lending.DefaultPolicy(), func() time.Time { return fixedNow })
	s.today = lending.DateOf(fixedNow)

	for i := 1; i <= 8; i++ {
		s.addBook(fmt.Sprintf("b%d", i), fmt.Sprintf("Book %d", i))
	}
	for i := 1; i <= 4; i++ {
		s.addMember(fmt.Sprintf("m%d", i))
	}
}

func (s *EngineSuite) addBook(id, title string) {
	res, err := s.engine.CreateBook(s.ctx, id, title)
	s.Require().NoError(err)
	s.Require().True(res.OK)
}

func (s *EngineSuite) addMember(id string) {
	res, err := s.engine.CreateMember(s.ctx, id, "Member "+id)
	s.Require().NoError(err)
	s.Require().True(res.OK)
}

func (s *EngineSuite) book(id string) models.Book {
	b, found, err := s.store.Books().FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().True(found, "book %s", id)
	return b
}

func (s *EngineSuite) borrow(bookID, memberID string) lending.Result {
	res, err := s.engine.BorrowBook(s.ctx, bookID, memberID)
	s.Require().NoError(err)
	return res
}

func (s *EngineSuite) reserve(bookID, memberID string) lending.Result {
	res, err := s.engine.ReserveBook(s.ctx, bookID, memberID)
	s.Require().NoError(err)
	return res
}

func (s *EngineSuite) giveBook(id, title, holder string, due time.Time, queue ...string) {
	if queue == nil {
		queue = []string{}
	}
	s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{
		ID: id, Title: title, LoanedTo: &holder, DueDate: &due, ReservationQueue: queue,
	}))
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

func (s *EngineSuite) TestBorrowBook() {
	s.Run("loans an available book for the loan period", func() {
		s.Equal(lending.Success(), s.borrow("b1", "m1"))

		b := s.book("b1")
		s.True(b.HeldBy("m1"))
		s.Require().NotNil(b.DueDate)
		s.Equal(s.today.AddDate(0, 0, 14), *b.DueDate)
	})

	s.Run("same member borrowing again is ALREADY_LOANED", func() {
		s.Equal(lending.Failure(lending.ReasonAlreadyLoaned), s.borrow("b1", "m1"))
	})

	s.Run("another member is BOOK_UNAVAILABLE", func() {
		s.Equal(lending.Failure(lending.ReasonBookUnavailable), s.borrow("b1", "m2"))
	})

	s.Run("unknown book and member", func() {
		s.Equal(lending.Failure(lending.ReasonBookNotFound), s.borrow("nope", "m1"))
		s.Equal(lending.Failure(lending.ReasonMemberNotFound), s.borrow("b2", "nope"))
	})

	s.Run("book check precedes member check", func() {
		s.Equal(lending.Failure(lending.ReasonBookNotFound), s.borrow("nope", "nope"))
	})
}

func (s *EngineSuite) TestBorrowLimit() {
	for i := 1; i <= 5; i++ {
		s.Require().True(s.borrow(fmt.Sprintf("b%d", i), "m1").OK)
	}

	s.Equal(lending.Failure(lending.ReasonBorrowLimit), s.borrow("b6", "m1"))
	s.False(s.book("b6").OnLoan())

	ret, err := s.engine.ReturnBook(s.ctx, "b1", "m1")
	s.Require().NoError(err)
	s.Require().True(ret.OK)

	s.Equal(lending.Success(), s.borrow("b6", "m1"))
}

func (s *EngineSuite) TestBorrowLimitFromPolicy() {
	engine := lending.NewEngine(s.store.Books(), s.store.Members(), lending.Policy{MaxLoans: 1, LoanPeriodDays: 7}, func() time.Time { return fixedNow })

	res, err := engine.BorrowBook(s.ctx, "b1", "m1")
	s.Require().NoError(err)
	s.True(res.OK)
	s.Equal(s.today.AddDate(0, 0, 7), *s.book("b1").DueDate)

	res, err = engine.BorrowBook(s.ctx, "b2", "m1")
	s.Require().NoError(err)
	s.Equal(lending.Failure(lending.ReasonBorrowLimit), res)
}

func (s *EngineSuite) TestBorrowRespectsReservationQueue() {
	s.Require().True(s.borrow("b1", "m1").OK)
	s.Require().True(s.reserve("b1", "m2").OK)

	// The book is back on the shelf with m3 ahead of everybody else.
	due := s.today.AddDate(0, 0, 3)
	s.giveBook("b2", "Queued", "m1", due, "m3", "m2")
	_, err := s.engine.ReturnBook(s.ctx, "b2", "m1")
	s.Require().NoError(err)
	s.True(s.book("b2").HeldBy("m3"))

	s.Run("non-head member is ALREADY_RESERVED on an available queued book", func() {
		s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{ID: "b7", Title: "Shelf", ReservationQueue: []string{"m3", "m2"}}))
		s.Equal(lending.Failure(lending.ReasonAlreadyReserved), s.borrow("b7", "m2"))
		s.Equal([]string{"m3", "m2"}, s.book("b7").ReservationQueue)
	})

	s.Run("head member borrows and leaves the queue", func() {
		s.Equal(lending.Success(), s.borrow("b7", "m3"))
		b := s.book("b7")
		s.True(b.HeldBy("m3"))
		s.Equal([]string{"m2"}, b.ReservationQueue)
	})
}

func (s *EngineSuite) TestBorrowAtLimitConsumesHeadReservation() {
	for i := 1; i <= 5; i++ {
		s.Require().True(s.borrow(fmt.Sprintf("b%d", i), "m1").OK)
	}
	s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{ID: "b7", Title: "Shelf", ReservationQueue: []string{"m1", "m2"}}))

	s.Equal(lending.Failure(lending.ReasonBorrowLimit), s.borrow("b7", "m1"))

	b := s.book("b7")
	s.False(b.OnLoan())
	s.Equal([]string{"m2"}, b.ReservationQueue)
}

// ─── Return ───────────────────────────────────────────────────────────────────

func (s *EngineSuite) TestReturnBook() {
	s.Require().True(s.borrow("b1", "m1").OK)

	s.Run("rejects a member who does not hold the book", func() {
		res, err := s.engine.ReturnBook(s.ctx, "b1", "m2")
		s.Require().NoError(err)
		s.Equal(lending.ResultWithNext{}, res)
		s.True(s.book("b1").HeldBy("m1"))
	})

	s.Run("rejects unknown and unloaned books", func() {
		res, err := s.engine.ReturnBook(s.ctx, "nope", "m1")
		s.Require().NoError(err)
		s.False(res.OK)

		res, err = s.engine.ReturnBook(s.ctx, "b2", "m1")
		s.Require().NoError(err)
		s.False(res.OK)
	})

	s.Run("holder returns with no queue", func() {
		res, err := s.engine.ReturnBook(s.ctx, "b1", "m1")
		s.Require().NoError(err)
		s.True(res.OK)
		s.Empty(res.NextMemberID)
		s.False(res.HandedOff())

		b := s.book("b1")
		s.Nil(b.LoanedTo)
		s.Nil(b.DueDate)
	})
}

func (s *EngineSuite) TestReturnHandsOffInFIFOOrder() {
	s.Require().True(s.borrow("b1", "m1").OK)
	s.Require().True(s.reserve("b1", "m2").OK)
	s.Require().True(s.reserve("b1", "m3").OK)

	res, err := s.engine.ReturnBook(s.ctx, "b1", "m1")
	s.Require().NoError(err)
	s.True(res.OK)
	s.Equal("m2", res.NextMemberID)
	s.True(res.HandedOff())

	b := s.book("b1")
	s.True(b.HeldBy("m2"))
	s.Equal(s.today.AddDate(0, 0, 14), *b.DueDate)
	s.Equal([]string{"m3"}, b.ReservationQueue)
}

func (s *EngineSuite) TestReturnDropsIneligibleCandidates() {
	// m2 is at the limit, m9 no longer exists, m3 can borrow, m4 stays queued.
	for i := 2; i <= 6; i++ {
		s.Require().True(s.borrow(fmt.Sprintf("b%d", i), "m2").OK)
	}
	s.giveBook("b1", "Popular", "m1", s.today, "m2", "m9", "m3", "m4")

	res, err := s.engine.ReturnBook(s.ctx, "b1", "m1")
	s.Require().NoError(err)
	s.Equal("m3", res.NextMemberID)

	b := s.book("b1")
	s.True(b.HeldBy("m3"))
	s.Equal([]string{"m4"}, b.ReservationQueue)
}

func (s *EngineSuite) TestReturnWithNoEligibleCandidateEmptiesQueue() {
	for i := 2; i <= 6; i++ {
		s.Require().True(s.borrow(fmt.Sprintf("b%d", i), "m2").OK)
	}
	s.giveBook("b1", "Popular", "m1", s.today, "m2", "ghost")

	res, err := s.engine.ReturnBook(s.ctx, "b1", "m1")
	s.Require().NoError(err)
	s.True(res.OK)
	s.Empty(res.NextMemberID)

	b := s.book("b1")
	s.False(b.OnLoan())
	s.Nil(b.DueDate)
	s.Empty(b.ReservationQueue)
}

// ─── Reserve / cancel ─────────────────────────────────────────────────────────

func (s *EngineSuite) TestReserveBook() {
	s.Require().True(s.borrow("b1", "m1").OK)

	s.Run("queues behind the holder", func() {
		s.Equal(lending.Success(), s.reserve("b1", "m2"))
		s.Equal(lending.Success(), s.reserve("b1", "m3"))
		s.Equal([]string{"m2", "m3"}, s.book("b1").ReservationQueue)
	})

	s.Run("holder cannot reserve", func() {
		s.Equal(lending.Failure(lending.ReasonAlreadyLoaned), s.reserve("b1", "m1"))
	})

	s.Run("no duplicate reservations", func() {
		s.Equal(lending.Failure(lending.ReasonAlreadyReserved), s.reserve("b1", "m2"))
		s.Equal([]string{"m2", "m3"}, s.book("b1").ReservationQueue)
	})

	s.Run("unknown book and member", func() {
		s.Equal(lending.Failure(lending.ReasonBookNotFound), s.reserve("nope", "m2"))
		s.Equal(lending.Failure(lending.ReasonMemberNotFound), s.reserve("b1", "nope"))
	})
}

func (s *EngineSuite) TestReserveAvailableBookBorrowsIt() {
	s.Equal(lending.Success(), s.reserve("b2", "m1"))

	b := s.book("b2")
	s.True(b.HeldBy("m1"))
	s.Empty(b.ReservationQueue)
}

func (s *EngineSuite) TestReserveAvailableBookPropagatesBorrowLimit() {
	for i := 1; i <= 5; i++ {
		s.Require().True(s.borrow(fmt.Sprintf("b%d", i), "m1").OK)
	}
	s.Equal(lending.Failure(lending.ReasonBorrowLimit), s.reserve("b6", "m1"))
	s.Empty(s.book("b6").ReservationQueue)
}

func (s *EngineSuite) TestReserveAvailableBookNoLineJumping() {
	s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{ID: "b7", Title: "Shelf", ReservationQueue: []string{"m3"}}))

	s.Equal(lending.Failure(lending.ReasonAlreadyReserved), s.reserve("b7", "m2"))
	s.Equal([]string{"m3"}, s.book("b7").ReservationQueue)
	s.False(s.book("b7").OnLoan())
}

func (s *EngineSuite) TestCancelReservation() {
	s.Require().True(s.borrow("b2", "m1").OK)
	s.Require().True(s.reserve("b2", "m2").OK)
	s.Require().True(s.reserve("b2", "m3").OK)
	s.Require().True(s.reserve("b2", "m4").OK)

	s.Run("removes exactly that entry", func() {
		res, err := s.engine.CancelReservation(s.ctx, "b2", "m3")
		s.Require().NoError(err)
		s.Equal(lending.Success(), res)
		s.Equal([]string{"m2", "m4"}, s.book("b2").ReservationQueue)
	})

	s.Run("absent reservation is NOT_RESERVED", func() {
		res, err := s.engine.CancelReservation(s.ctx, "b2", "m3")
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonNotReserved), res)
	})

	s.Run("unknown book and member", func() {
		res, err := s.engine.CancelReservation(s.ctx, "nope", "m2")
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonBookNotFound), res)

		res, err = s.engine.CancelReservation(s.ctx, "b2", "nope")
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonMemberNotFound), res)
	})
}

// ─── Extend / overdue ─────────────────────────────────────────────────────────

func (s *EngineSuite) TestExtendLoan() {
	s.Require().True(s.borrow("b3", "m1").OK)
	before := *s.book("b3").DueDate

	s.Run("positive days move the due date later", func() {
		res, err := s.engine.ExtendLoan(s.ctx, "b3", 3)
		s.Require().NoError(err)
		s.Equal(lending.Success(), res)
		s.Equal(before.AddDate(0, 0, 3), *s.book("b3").DueDate)
	})

	s.Run("zero days is INVALID_EXTENSION even for an unknown book", func() {
		res, err := s.engine.ExtendLoan(s.ctx, "nope", 0)
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonInvalidExtension), res)
	})

	s.Run("unknown and unloaned books", func() {
		res, err := s.engine.ExtendLoan(s.ctx, "nope", 2)
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonBookNotFound), res)

		res, err = s.engine.ExtendLoan(s.ctx, "b4", 2)
		s.Require().NoError(err)
		s.Equal(lending.Failure(lending.ReasonNotLoaned), res)
	})
}

func (s *EngineSuite) TestExtendLoanWithoutDueDateUsesDefault() {
	holder := "m1"
	s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{ID: "b5", Title: "Odd", LoanedTo: &holder}))

	res, err := s.engine.ExtendLoan(s.ctx, "b5", 2)
	s.Require().NoError(err)
	s.True(res.OK)
	s.Equal(s.today.AddDate(0, 0, 16), *s.book("b5").DueDate)
}

func (s *EngineSuite) TestExtendLoanAcrossDSTKeepsMidnightUTC() {
	berlin, err := time.LoadLocation("Europe/Berlin")
	s.Require().NoError(err)

	// Berlin moves to summer time on 2026-03-29.
	due := time.Date(2026, time.March, 27, 0, 0, 0, 0, time.UTC).In(berlin)
	s.giveBook("b1", "Zoned", "m1", due)

	res, err := s.engine.ExtendLoan(s.ctx, "b1", 3)
	s.Require().NoError(err)
	s.True(res.OK)

	got := *s.book("b1").DueDate
	s.Equal(time.Date(2026, time.March, 30, 0, 0, 0, 0, time.UTC), got)

	overdue, err := s.engine.OverdueBooks(s.ctx, time.Date(2026, time.March, 30, 8, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Empty(overdue)
}

func (s *EngineSuite) TestNegativeExtensionMakesBookOverdue() {
	s.Require().True(s.borrow("b6", "m1").OK)

	overdue, err := s.engine.OverdueBooks(s.ctx, s.today)
	s.Require().NoError(err)
	s.Empty(overdue)

	res, err := s.engine.ExtendLoan(s.ctx, "b6", -30)
	s.Require().NoError(err)
	s.True(res.OK)

	overdue, err = s.engine.OverdueBooks(s.ctx, s.engine.Today())
	s.Require().NoError(err)
	s.Require().Len(overdue, 1)
	s.Equal("b6", overdue[0].ID)
}

func (s *EngineSuite) TestOverdueBooksIsStrictlyBeforeToday() {
	s.giveBook("b1", "Due yesterday", "m1", s.today.AddDate(0, 0, -1))
	s.giveBook("b2", "Due today", "m1", s.today)
	s.giveBook("b3", "Due tomorrow", "m2", s.today.AddDate(0, 0, 1))
	past := s.today.AddDate(0, 0, -5)
	s.Require().NoError(s.store.Books().Save(s.ctx, models.Book{ID: "b4", Title: "Returned", DueDate: &past}))

	overdue, err := s.engine.OverdueBooks(s.ctx, fixedNow)
	s.Require().NoError(err)
	s.Require().Len(overdue, 1)
	s.Equal("b1", overdue[0].ID)
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *EngineSuite) TestSearchBooks() {
	s.addBook("alg", "Algorithms 101")
	s.Require().True(s.borrow("alg", "m1").OK)
	s.Require().True(s.borrow("b2", "m2").OK)

	ids := func(books []models.Book) []string {
		out := make([]string, 0, len(books))
		for _, b := range books {
			out = append(out, b.ID)
		}
		return out
	}
	str := func(v string) *string { return &v }
	boolean := func(v bool) *bool { return &v }

	s.Run("no filters returns everything", func() {
		books, err := s.engine.SearchBooks(s.ctx, lending.SearchFilter{})
		s.Require().NoError(err)
		s.Len(books, 9)
	})

	s.Run("title is a case-insensitive substring", func() {
		books, err := s.engine.SearchBooks(s.ctx, lending.SearchFilter{TitleContains: str("aLGo")})
		s.Require().NoError(err)
		s.Equal([]string{"alg"}, ids(books))
	})

	s.Run("holder filter", func() {
		books, err := s.engine.SearchBooks(s.ctx, lending.SearchFilter{LoanedTo: str("m2")})
		s.Require().NoError(err)
		s.Equal([]string{"b2"}, ids(books))
	})

	s.Run("availability filter", func() {
		books, err := s.engine.SearchBooks(s.ctx, lending.SearchFilter{Available: boolean(false)})
		s.Require().NoError(err)
		s.ElementsMatch([]string{"alg", "b2"}, ids(books))

		books, err = s.engine.SearchBooks(s.ctx, lending.SearchFilter{Available: boolean(true)})
		s.Require().NoError(err)
		s.Len(books, 7)
		s.NotContains(ids(books), "alg")
	})

	s.Run("filters combine", func() {
		books, err := s.engine.SearchBooks(s.ctx, lending.SearchFilter{TitleContains: str("book"), Available: boolean(false)})
		s.Require().NoError(err)
		s.Equal([]string{"b2"}, ids(books))
	})
}

func (s *EngineSuite) TestMemberSummary() {
	s.Require().True(s.borrow("b4", "m2").OK)
	s.Require().True(s.borrow("b5", "m1").OK)
	s.Require().True(s.reserve("b5", "m3").OK)
	s.Require().True(s.reserve("b5", "m2").OK)

	summary, err := s.engine.MemberSummary(s.ctx, "m2")
	s.Require().NoError(err)
	s.True(summary.OK)
	s.Empty(summary.Reason)
	s.Require().Len(summary.Loans, 1)
	s.Equal("b4", summary.Loans[0].ID)
	s.Equal([]lending.ReservationPosition{{BookID: "b5", Position: 1}}, summary.Reservations)

	s.Run("unknown member", func() {
		summary, err := s.engine.MemberSummary(s.ctx, "nope")
		s.Require().NoError(err)
		s.False(summary.OK)
		s.Equal(lending.ReasonMemberNotFound, summary.Reason)
		s.NotNil(summary.Loans)
		s.Empty(summary.Loans)
		s.NotNil(summary.Reservations)
		s.Empty(summary.Reservations)
	})
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

func (s *EngineSuite) TestBookCRUD() {
	res, err := s.engine.CreateBook(s.ctx, "vb1", "Visible Book")
	s.Require().NoError(err)
	s.True(res.OK)

	res, err = s.engine.UpdateBook(s.ctx, "vb1", "Renamed")
	s.Require().NoError(err)
	s.True(res.OK)
	s.Equal("Renamed", s.book("vb1").Title)

	res, err = s.engine.DeleteBook(s.ctx, "vb1")
	s.Require().NoError(err)
	s.True(res.OK)

	books, err := s.engine.AllBooks(s.ctx)
	s.Require().NoError(err)
	for _, b := range books {
		s.NotEqual("vb1", b.ID)
	}

	s.Run("rejections", func() {
		res, _ := s.engine.CreateBook(s.ctx, "", "Title")
		s.Equal(lending.Failure(lending.ReasonInvalidRequest), res)
		res, _ = s.engine.CreateBook(s.ctx, "x", "")
		s.Equal(lending.Failure(lending.ReasonInvalidRequest), res)
		res, _ = s.engine.UpdateBook(s.ctx, "vb1", "Again")
		s.Equal(lending.Failure(lending.ReasonBookNotFound), res)
		res, _ = s.engine.UpdateBook(s.ctx, "b1", "")
		s.Equal(lending.Failure(lending.ReasonInvalidRequest), res)
		res, _ = s.engine.DeleteBook(s.ctx, "vb1")
		s.Equal(lending.Failure(lending.ReasonBookNotFound), res)
	})
}

func (s *EngineSuite) TestCreateBookOverwrites() {
	s.Require().True(s.borrow("b1", "m1").OK)

	res, err := s.engine.CreateBook(s.ctx, "b1", "Fresh")
	s.Require().NoError(err)
	s.True(res.OK)

	b := s.book("b1")
	s.Equal("Fresh", b.Title)
	s.False(b.OnLoan())
}

func (s *EngineSuite) TestDeleteLoanedBookIsAllowed() {
	s.Require().True(s.borrow("b1", "m1").OK)
	s.Require().True(s.reserve("b1", "m2").OK)

	res, err := s.engine.DeleteBook(s.ctx, "b1")
	s.Require().NoError(err)
	s.True(res.OK)

	_, found, err := s.engine.FindBook(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(found)
}

func (s *EngineSuite) TestMemberCRUD() {
	res, err := s.engine.CreateMember(s.ctx, "vm1", "Visible Member")
	s.Require().NoError(err)
	s.True(res.OK)

	res, err = s.engine.UpdateMember(s.ctx, "vm1", "Renamed")
	s.Require().NoError(err)
	s.True(res.OK)
	m, found, err := s.store.Members().FindByID(s.ctx, "vm1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("Renamed", m.Name)

	s.Require().True(s.borrow("b1", "vm1").OK)
	res, err = s.engine.DeleteMember(s.ctx, "vm1")
	s.Require().NoError(err)
	s.True(res.OK)

	members, err := s.engine.AllMembers(s.ctx)
	s.Require().NoError(err)
	s.Len(members, 4)

	s.Run("rejections", func() {
		res, _ := s.engine.CreateMember(s.ctx, "x", "")
		s.Equal(lending.Failure(lending.ReasonInvalidRequest), res)
		res, _ = s.engine.UpdateMember(s.ctx, "vm1", "Again")
		s.Equal(lending.Failure(lending.ReasonMemberNotFound), res)
		res, _ = s.engine.UpdateMember(s.ctx, "m1", "")
		s.Equal(lending.Failure(lending.ReasonInvalidRequest), res)
		res, _ = s.engine.DeleteMember(s.ctx, "vm1")
		s.Equal(lending.Failure(lending.ReasonMemberNotFound), res)
	})
}
