package httpgin

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service"
	"github.com/kirinyoku/concertix/internal/service/admin"
	"github.com/kirinyoku/concertix/internal/service/query"
	"github.com/kirinyoku/concertix/internal/service/reservation"
)

// NewRouter binds the HTTP API. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/concerts/:id", handleGetConcert(svcs))
	r.GET("/concerts/:id/availability", handleGetAvailability(svcs))
	r.GET("/concerts/:id/seats", handleListSeats(svcs))

	// Caller API
	user := r.Group("/", IdentityMiddleware())
	{
		user.POST("/concerts/:id/reservations", handleReserve(svcs, idem))
		user.POST("/concerts/:id/holds", handleHold(svcs))
		user.POST("/holds/:id/confirm", handleConfirmHold(svcs))
		user.DELETE("/holds/:id", handleReleaseHold(svcs))

		user.GET("/reservations/:id", handleGetReservation(svcs))
		user.GET("/reservations/:id/qr", handleReservationQR(svcs))
		user.POST("/reservations/:id/cancel", handleCancelReservation(svcs))

		user.GET("/me/reservations", handleListMyReservations(svcs))
		user.GET("/me/points", handleMyPoints(svcs))
	}

	// Admin API
	adm := r.Group("/admin", IdentityMiddleware(), RequireAdminMiddleware())
	{
		adm.POST("/concerts", handleCreateConcert(svcs))
		adm.DELETE("/concerts/:id", handleDeleteConcert(svcs))
		adm.POST("/concerts/:id/seats/:seatID/withdraw", handleWithdrawSeat(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

type errorMapping struct {
	target error
	status int
	msg    string
}

var errorMappings = []errorMapping{
	// not found
	{reservation.ErrConcertNotFound, http.StatusNotFound, "concert not found"},
	{query.ErrConcertNotFound, http.StatusNotFound, "concert not found"},
	{admin.ErrConcertNotFound, http.StatusNotFound, "concert not found"},
	{reservation.ErrReservationNotFound, http.StatusNotFound, "reservation not found"},
	{reservation.ErrHoldNotFound, http.StatusNotFound, "hold not found"},
	{reservation.ErrSeatNotFound, http.StatusNotFound, "seat not found"},
	{reservation.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{admin.ErrOwnerNotFound, http.StatusNotFound, "concert owner not found"},
	// conflicts
	{reservation.ErrSeatUnavailable, http.StatusConflict, "seat unavailable"},
	{reservation.ErrConcertFull, http.StatusConflict, "concert is full"},
	{reservation.ErrInsufficientBalance, http.StatusConflict, "insufficient point balance"},
	{reservation.ErrAlreadyCancelled, http.StatusConflict, "reservation already cancelled"},
	{reservation.ErrCancellationWindowClosed, http.StatusConflict, "cancellation window closed"},
	{reservation.ErrHoldExpired, http.StatusConflict, "hold expired"},
	{reservation.ErrConcertExpired, http.StatusConflict, "concert has already started"},
	{admin.ErrSeatsConflict, http.StatusConflict, "seat labels conflict"},
	{errTicketNotIssued, http.StatusConflict, "reservation is not confirmed"},
	// access
	{reservation.ErrNotOwner, http.StatusForbidden, "reservation belongs to another user"},
	{admin.ErrForbidden, http.StatusForbidden, "admin privileges required"},
	// input
	{admin.ErrInvalidConcert, http.StatusBadRequest, "invalid concert"},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl reservation.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{Error: m.msg})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
