package repositories

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

// InMemory keeps books and members in maps. Every read returns a copy, so
// callers never alias stored entities.
type InMemory struct {
	mu      sync.RWMutex
	books   map[string]models.Book
	members map[string]models.Member
}

func NewInMemory() *InMemory {
	return &InMemory{
		books:   make(map[string]models.Book),
		members: make(map[string]models.Member),
	}
}

func (s *InMemory) Books() lending.BookStore {
	return memoryBooks{s}
}

func (s *InMemory) Members() lending.MemberStore {
	return memoryMembers{s}
}

// Transaction runs fn against the live maps. Writes are applied as they are
// made and are not rolled back if fn fails later.
func (s *InMemory) Transaction(_ context.Context, fn func(books lending.BookStore, members lending.MemberStore) error) error {
	return fn(s.Books(), s.Members())
}

type memoryBooks struct {
	s *InMemory
}

func (r memoryBooks) FindByID(_ context.Context, id string) (models.Book, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	book, ok := r.s.books[id]
	if !ok {
		return models.Book{}, false, nil
	}
	return book.Clone(), true, nil
}

func (r memoryBooks) FindAll(_ context.Context) ([]models.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Book, 0, len(r.s.books))
	for _, book := range r.s.books {
		out = append(out, book.Clone())
	}
	slices.SortFunc(out, func(a, b models.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r memoryBooks) Save(_ context.Context, book models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.books[book.ID] = book.Clone()
	return nil
}

func (r memoryBooks) Delete(_ context.Context, book models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.books, book.ID)
	return nil
}

func (r memoryBooks) CountByLoanedTo(_ context.Context, memberID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, book := range r.s.books {
		if book.HeldBy(memberID) {
			n++
		}
	}
	return n, nil
}

type memoryMembers struct {
	s *InMemory
}

func (r memoryMembers) FindByID(_ context.Context, id string) (models.Member, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	member, ok := r.s.members[id]
	return member, ok, nil
}

func (r memoryMembers) ExistsByID(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.members[id]
	return ok, nil
}

func (r memoryMembers) FindAll(_ context.Context) ([]models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Member, 0, len(r.s.members))
	for _, member := range r.s.members {
		out = append(out, member)
	}
	slices.SortFunc(out, func(a, b models.Member) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r memoryMembers) Save(_ context.Context, member models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.members[member.ID] = member
	return nil
}

func (r memoryMembers) Delete(_ context.Context, member models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.members, member.ID)
	return nil
}
