package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-lending/internal/lending"
	"library-lending/internal/services"
)

type LibraryHandler struct {
	svc services.LibraryService
}

func RegisterRoutes(r gin.IRouter, svc services.LibraryService) {
	h := &LibraryHandler{svc: svc}

	api := r.Group("/api")
	api.GET("/health", h.health)

	// Catalog
	api.GET("/books", h.listBooks)
	api.GET("/books/search", h.searchBooks)
	api.POST("/books", h.createBook)
	api.PUT("/books", h.updateBook)
	api.DELETE("/books", h.deleteBook)

	api.GET("/members", h.listMembers)
	api.GET("/members/:id/summary", h.memberSummary)
	api.POST("/members", h.createMember)
	api.PUT("/members", h.updateMember)
	api.DELETE("/members", h.deleteMember)

	// Circulation
	api.POST("/borrow", h.borrowBook)
	api.POST("/return", h.returnBook)
	api.POST("/reserve", h.reserveBook)
	api.POST("/cancel-reservation", h.cancelReservation)
	api.POST("/extend", h.extendLoan)
	api.GET("/overdue", h.overdueBooks)
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *LibraryHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

type bookRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type memberRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.svc.ListBooks(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBooksResponse(books))
}

func (h *LibraryHandler) searchBooks(c *gin.Context) {
	var filter lending.SearchFilter
	if v, ok := c.GetQuery("titleContains"); ok {
		filter.TitleContains = &v
	}
	if v, ok := c.GetQuery("loanedTo"); ok {
		filter.LoanedTo = &v
	}
	if v, ok := c.GetQuery("available"); ok {
		available, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "available must be true or false"})
			return
		}
		filter.Available = &available
	}

	books, err := h.svc.SearchBooks(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBooksResponse(books))
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.CreateBook(c.Request.Context(), req.ID, req.Title))
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.UpdateBook(c.Request.Context(), req.ID, req.Title))
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.DeleteBook(c.Request.Context(), req.ID))
}

func (h *LibraryHandler) listMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMembersResponse(members))
}

func (h *LibraryHandler) memberSummary(c *gin.Context) {
	summary, err := h.svc.MemberSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMemberSummaryResponse(summary))
}

func (h *LibraryHandler) createMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.CreateMember(c.Request.Context(), req.ID, req.Name))
}

func (h *LibraryHandler) updateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.UpdateMember(c.Request.Context(), req.ID, req.Name))
}

func (h *LibraryHandler) deleteMember(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.DeleteMember(c.Request.Context(), req.ID))
}

// ─── Circulation ──────────────────────────────────────────────────────────────

type lendingRequest struct {
	BookID   string `json:"bookId"`
	MemberID string `json:"memberId"`
}

type extendRequest struct {
	BookID string `json:"bookId"`
	Days   int    `json:"days"`
}

func (h *LibraryHandler) borrowBook(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.BorrowBook(c.Request.Context(), req.BookID, req.MemberID))
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.ReturnBook(c.Request.Context(), req.BookID, req.MemberID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newResultWithNextResponse(res))
}

func (h *LibraryHandler) reserveBook(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.ReserveBook(c.Request.Context(), req.BookID, req.MemberID))
}

func (h *LibraryHandler) cancelReservation(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.CancelReservation(c.Request.Context(), req.BookID, req.MemberID))
}

func (h *LibraryHandler) extendLoan(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.svc.ExtendLoan(c.Request.Context(), req.BookID, req.Days))
}

func (h *LibraryHandler) overdueBooks(c *gin.Context) {
	books, err := h.svc.OverdueBooks(c.Request.Context(), h.svc.Today())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBooksResponse(books))
}

// respond writes a lending.Result. Rejections are still 200; only storage
// faults become 500.
func (h *LibraryHandler) respond(c *gin.Context) func(lending.Result, error) {
	return func(res lending.Result, err error) {
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, newResultResponse(res))
	}
}
