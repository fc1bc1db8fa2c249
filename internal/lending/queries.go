package lending

import (
	"context"
	"strings"
	"time"

	"library-lending/internal/models"
)

// SearchBooks filters the catalog by title substring (case-insensitive),
// current holder and availability. All set filters must match.
func (e *Engine) SearchBooks(ctx context.Context, filter SearchFilter) ([]models.Book, error) {
	books, err := e.books.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var needle string
	if filter.TitleContains != nil {
		needle = strings.ToLower(*filter.TitleContains)
	}

	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if filter.TitleContains != nil && !strings.Contains(strings.ToLower(b.Title), needle) {
			continue
		}
		if filter.LoanedTo != nil && !b.HeldBy(*filter.LoanedTo) {
			continue
		}
		if filter.Available != nil && *filter.Available == b.OnLoan() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// OverdueBooks returns loaned books due strictly before the calendar date of today.
func (e *Engine) OverdueBooks(ctx context.Context, today time.Time) ([]models.Book, error) {
	books, err := e.books.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := DateOf(today)

	out := make([]models.Book, 0)
	for _, b := range books {
		if !b.OnLoan() || b.DueDate == nil {
			continue
		}
		if b.DueDate.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}

// MemberSummary collects memberID's current loans and the member's position
// in every reservation queue, in a single pass over the catalog.
func (e *Engine) MemberSummary(ctx context.Context, memberID string) (MemberSummary, error) {
	summary := MemberSummary{
		Loans:        []models.Book{},
		Reservations: []ReservationPosition{},
	}

	exists, err := e.members.ExistsByID(ctx, memberID)
	if err != nil {
		return MemberSummary{}, err
	}
	if !exists {
		summary.Reason = ReasonMemberNotFound
		return summary, nil
	}

	books, err := e.books.FindAll(ctx)
	if err != nil {
		return MemberSummary{}, err
	}
	for _, b := range books {
		if b.HeldBy(memberID) {
			summary.Loans = append(summary.Loans, b)
		}
		if pos := b.QueuePosition(memberID); pos >= 0 {
			summary.Reservations = append(summary.Reservations, ReservationPosition{BookID: b.ID, Position: pos})
		}
	}
	summary.OK = true
	return summary, nil
}
