package lending

import (
	"context"

	"library-lending/internal/models"
)

// Catalog maintenance. Empty ids, titles and names are treated as missing.
// Deletes do not check for active loans or reservations.

func (e *Engine) FindBook(ctx context.Context, id string) (models.Book, bool, error) {
	return e.books.FindByID(ctx, id)
}

func (e *Engine) AllBooks(ctx context.Context) ([]models.Book, error) {
	return e.books.FindAll(ctx)
}

func (e *Engine) AllMembers(ctx context.Context) ([]models.Member, error) {
	return e.members.FindAll(ctx)
}

// CreateBook stores a new book, overwriting any book with the same id.
func (e *Engine) CreateBook(ctx context.Context, id, title string) (Result, error) {
	if id == "" || title == "" {
		return Failure(ReasonInvalidRequest), nil
	}
	if err := e.books.Save(ctx, models.Book{ID: id, Title: title, ReservationQueue: []string{}}); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

func (e *Engine) UpdateBook(ctx context.Context, id, title string) (Result, error) {
	book, found, err := e.books.FindByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	if title == "" {
		return Failure(ReasonInvalidRequest), nil
	}
	book.Title = title
	if err := e.books.Save(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

func (e *Engine) DeleteBook(ctx context.Context, id string) (Result, error) {
	book, found, err := e.books.FindByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonBookNotFound), nil
	}
	if err := e.books.Delete(ctx, book); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

// CreateMember stores a new member, overwriting any member with the same id.
func (e *Engine) CreateMember(ctx context.Context, id, name string) (Result, error) {
	if id == "" || name == "" {
		return Failure(ReasonInvalidRequest), nil
	}
	if err := e.members.Save(ctx, models.Member{ID: id, Name: name}); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

func (e *Engine) UpdateMember(ctx context.Context, id, name string) (Result, error) {
	member, found, err := e.members.FindByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonMemberNotFound), nil
	}
	if name == "" {
		return Failure(ReasonInvalidRequest), nil
	}
	member.Name = name
	if err := e.members.Save(ctx, member); err != nil {
		return Result{}, err
	}
	return Success(), nil
}

func (e *Engine) DeleteMember(ctx context.Context, id string) (Result, error) {
	member, found, err := e.members.FindByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Failure(ReasonMemberNotFound), nil
	}
	if err := e.members.Delete(ctx, member); err != nil {
		return Result{}, err
	}
	return Success(), nil
}
