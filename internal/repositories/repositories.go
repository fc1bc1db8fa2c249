package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

// Store hands out the two lending collaborators and the transaction boundary
// that mutating operations run in.
type Store interface {
	Books() lending.BookStore
	Members() lending.MemberStore
	// Transaction runs fn with collaborators bound to one unit of work. An
	// error returned by fn aborts the unit of work and is returned unchanged.
	Transaction(ctx context.Context, fn func(books lending.BookStore, members lending.MemberStore) error) error
}

// ─── gorm-backed store ────────────────────────────────────────────────────────

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Books() lending.BookStore {
	return NewBookRepository(s.db)
}

func (s *GormStore) Members() lending.MemberStore {
	return NewMemberRepository(s.db)
}

// Transaction opens a database transaction. Books read through the
// transactional repository are locked FOR UPDATE until commit.
func (s *GormStore) Transaction(ctx context.Context, fn func(books lending.BookStore, members lending.MemberStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&bookRepository{db: tx, forUpdate: true}, NewMemberRepository(tx))
	})
}

// ─── Books ────────────────────────────────────────────────────────────────────

type bookRepository struct {
	db        *gorm.DB
	forUpdate bool
}

func NewBookRepository(db *gorm.DB) lending.BookStore {
	return &bookRepository{db: db}
}

func (r *bookRepository) FindByID(ctx context.Context, id string) (models.Book, bool, error) {
	db := r.db.WithContext(ctx)
	if r.forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Book{}, false, nil
		}
		return models.Book{}, false, err
	}

	var rows []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", id).
		Order("queue_position ASC").
		Find(&rows).Error; err != nil {
		return models.Book{}, false, err
	}
	book.ReservationQueue = make([]string, 0, len(rows))
	for _, row := range rows {
		book.ReservationQueue = append(book.ReservationQueue, row.MemberID)
	}
	normalizeDueDate(&book)
	return book, true, nil
}

func (r *bookRepository) FindAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, err
	}

	var rows []models.Reservation
	if err := r.db.WithContext(ctx).
		Order("book_id ASC, queue_position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	queues := make(map[string][]string)
	for _, row := range rows {
		queues[row.BookID] = append(queues[row.BookID], row.MemberID)
	}

	for i := range books {
		normalizeDueDate(&books[i])
		books[i].ReservationQueue = queues[books[i].ID]
		if books[i].ReservationQueue == nil {
			books[i].ReservationQueue = []string{}
		}
	}
	return books, nil
}

// Save upserts the book row and rewrites its reservation rows so that
// queue_position matches the slice index.
func (r *bookRepository) Save(ctx context.Context, book models.Book) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&book).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", book.ID).Delete(&models.Reservation{}).Error; err != nil {
			return err
		}
		if len(book.ReservationQueue) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]models.Reservation, 0, len(book.ReservationQueue))
		for pos, memberID := range book.ReservationQueue {
			rows = append(rows, models.Reservation{
				BookID:        book.ID,
				MemberID:      memberID,
				QueuePosition: pos,
				CreatedAt:     now,
			})
		}
		return tx.Create(&rows).Error
	})
}

// normalizeDueDate converts a due date read back in the driver's zone
// (pgx uses time.Local for timestamptz) to UTC.
func normalizeDueDate(book *models.Book) {
	if book.DueDate != nil {
		due := book.DueDate.UTC()
		book.DueDate = &due
	}
}

func (r *bookRepository) Delete(ctx context.Context, book models.Book) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", book.ID).Delete(&models.Reservation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Book{}, "id = ?", book.ID).Error
	})
}

func (r *bookRepository) CountByLoanedTo(ctx context.Context, memberID string) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("loaned_to = ?", memberID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// ─── Members ──────────────────────────────────────────────────────────────────

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) lending.MemberStore {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id string) (models.Member, bool, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Member{}, false, nil
		}
		return models.Member{}, false, err
	}
	return member, true, nil
}

func (r *memberRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *memberRepository) FindAll(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.WithContext(ctx).Order("id").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) Save(ctx context.Context, member models.Member) error {
	return r.db.WithContext(ctx).Save(&member).Error
}

func (r *memberRepository) Delete(ctx context.Context, member models.Member) error {
	return r.db.WithContext(ctx).Delete(&models.Member{}, "id = ?", member.ID).Error
}
