package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/concertix/internal/service"
	"github.com/kirinyoku/concertix/internal/service/admin"
)

// @Summary  Create concert and its seats
// @Param    X-User-ID     header  int   true  "Caller"
// @Param    X-User-Admin  header  bool  true  "Must be true"
// @Param    req body  CreateConcertRequest true "payload"
// @Success  201 {object} CreateConcertResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seat labels conflict"
// @Router   /admin/concerts [post]
func handleCreateConcert(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateConcertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		concert, err := svcs.Admin.CreateConcert(c.Request.Context(), actorFrom(c), admin.NewConcert{
			Title:       req.Title,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			ConcertTime: req.ConcertTime,
			Category:    req.Category,
			Location:    req.Location,
			MaxSeats:    req.MaxSeats,
			Price:       req.Price,
			SeatLabels:  req.SeatLabels,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateConcertResponse{ConcertID: concert.ID, Seats: concert.MaxSeats})
	}
}

// @Summary  Delete concert, refunding confirmed reservations
// @Param    id  path  int  true  "Concert ID"
// @Param    X-User-ID     header  int   true  "Caller"
// @Param    X-User-Admin  header  bool  true  "Must be true"
// @Success  200 {object} DeleteConcertResponse
// @Failure  404 {object} ErrorResponse
// @Router   /admin/concerts/{id} [delete]
func handleDeleteConcert(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		n, err := svcs.Admin.DeleteConcert(c.Request.Context(), actorFrom(c), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, DeleteConcertResponse{Refunded: n})
	}
}

// @Summary  Withdraw a seat from sale
// @Param    id      path  int  true  "Concert ID"
// @Param    seatID  path  int  true  "Seat ID"
// @Param    X-User-ID     header  int   true  "Caller"
// @Param    X-User-Admin  header  bool  true  "Must be true"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seat held or booked"
// @Router   /admin/concerts/{id}/seats/{seatID}/withdraw [post]
func handleWithdrawSeat(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		seatID, ok := parseInt64Param(c, "seatID")
		if !ok {
			return
		}
		if err := svcs.Admin.WithdrawSeat(c.Request.Context(), actorFrom(c), concertID, seatID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
