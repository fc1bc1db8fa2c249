package handlers

import (
	"time"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

const dateLayout = "2006-01-02"

type bookResponse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	LoanedTo         *string  `json:"loanedTo"`
	DueDate          *string  `json:"dueDate"`
	ReservationQueue []string `json:"reservationQueue"`
}

type memberResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type resultResponse struct {
	OK     bool    `json:"ok"`
	Reason *string `json:"reason"`
}

type resultWithNextResponse struct {
	OK           bool    `json:"ok"`
	NextMemberID *string `json:"nextMemberId"`
}

type loanResponse struct {
	BookID  string  `json:"bookId"`
	Title   string  `json:"title"`
	DueDate *string `json:"dueDate"`
}

type reservationResponse struct {
	BookID   string `json:"bookId"`
	Position int    `json:"position"`
}

type memberSummaryResponse struct {
	OK           bool                  `json:"ok"`
	Reason       *string               `json:"reason"`
	Loans        []loanResponse        `json:"loans"`
	Reservations []reservationResponse `json:"reservations"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newBookResponse(b models.Book) bookResponse {
	queue := b.ReservationQueue
	if queue == nil {
		queue = []string{}
	}
	return bookResponse{
		ID:               b.ID,
		Title:            b.Title,
		LoanedTo:         b.LoanedTo,
		DueDate:          formatDate(b.DueDate),
		ReservationQueue: queue,
	}
}

func newBooksResponse(books []models.Book) itemsResponse[bookResponse] {
	items := make([]bookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, newBookResponse(b))
	}
	return itemsResponse[bookResponse]{Items: items}
}

func newMembersResponse(members []models.Member) itemsResponse[memberResponse] {
	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, memberResponse{ID: m.ID, Name: m.Name})
	}
	return itemsResponse[memberResponse]{Items: items}
}

func newResultResponse(r lending.Result) resultResponse {
	return resultResponse{OK: r.OK, Reason: optional(string(r.Reason))}
}

func newResultWithNextResponse(r lending.ResultWithNext) resultWithNextResponse {
	return resultWithNextResponse{OK: r.OK, NextMemberID: optional(r.NextMemberID)}
}

func newMemberSummaryResponse(s lending.MemberSummary) memberSummaryResponse {
	out := memberSummaryResponse{
		OK:           s.OK,
		Reason:       optional(string(s.Reason)),
		Loans:        make([]loanResponse, 0, len(s.Loans)),
		Reservations: make([]reservationResponse, 0, len(s.Reservations)),
	}
	for _, b := range s.Loans {
		out.Loans = append(out.Loans, loanResponse{BookID: b.ID, Title: b.Title, DueDate: formatDate(b.DueDate)})
	}
	for _, r := range s.Reservations {
		out.Reservations = append(out.Reservations, reservationResponse{BookID: r.BookID, Position: r.Position})
	}
	return out
}
