package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/kirinyoku/concertix/internal/domain"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service"
)

var errTicketNotIssued = errors.New("ticket not issued")

// @Summary  Reserve a seat (idempotent)
// @Param    id  path  int  true  "Concert ID"
// @Param    X-User-ID  header  int  true  "Caller"
// @Param    Idempotency-Key  header  string  false  "Replays the first response"
// @Param    req body  ReserveRequest false "payload"
// @Success  201 {object} ReservationResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seat unavailable / full / insufficient balance"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /concerts/{id}/reservations [post]
func handleReserve(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ReserveRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		actor := actorFrom(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemReserve(concertID, actor.UserID, idemKey)

			state, payload, err := idem.Begin(c.Request.Context(), storageKey)
			if err != nil {
				respondErr(c, err)
				return
			}
			switch state {
			case redisrepo.IdemDone:
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			case redisrepo.IdemInFlight:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		res, err := svcs.Reservation.Reserve(
			c.Request.Context(),
			actor.UserID,
			concertID,
			domain.SeatSelector{SeatID: req.SeatID},
		)
		if err != nil {
			if storageKey != "" {
				_ = idem.Abort(context.WithoutCancel(c.Request.Context()), storageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toReservationResponse(res)

		if storageKey != "" {
			if b, err := json.Marshal(resp); err == nil {
				_ = idem.Complete(context.WithoutCancel(c.Request.Context()), storageKey, string(b))
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Hold a seat without paying
// @Param    id  path  int  true  "Concert ID"
// @Param    X-User-ID  header  int  true  "Caller"
// @Param    req body  HoldRequest false "payload"
// @Success  201 {object} ReservationResponse
// @Failure  409 {object} ErrorResponse
// @Router   /concerts/{id}/holds [post]
func handleHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req HoldRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		res, err := svcs.Reservation.Hold(
			c.Request.Context(),
			actorFrom(c).UserID,
			concertID,
			domain.SeatSelector{SeatID: req.SeatID},
			time.Duration(req.TTLSec)*time.Second,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, toReservationResponse(res))
	}
}

// @Summary  Confirm a hold and pay
// @Param    id  path  string  true  "Hold ID (uuid)"
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  200 {object} ReservationResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "hold expired / insufficient balance"
// @Router   /holds/{id}/confirm [post]
func handleConfirmHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		holdID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		res, err := svcs.Reservation.Confirm(c.Request.Context(), holdID, actorFrom(c).UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  Release a hold
// @Param    id  path  string  true  "Hold ID (uuid)"
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /holds/{id} [delete]
func handleReleaseHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		holdID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Reservation.ReleaseHold(c.Request.Context(), holdID, actorFrom(c)); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Get reservation
// @Param    id  path  string  true  "Reservation ID (uuid)"
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  200 {object} ReservationResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		res, err := svcs.Reservation.Get(c.Request.Context(), id, actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  Ticket QR code
// @Produce  png
// @Param    id  path  string  true  "Reservation ID (uuid)"
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  200 {file} binary
// @Failure  409 {object} ErrorResponse "not confirmed"
// @Router   /reservations/{id}/qr [get]
func handleReservationQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		res, err := svcs.Reservation.Get(c.Request.Context(), id, actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		if res.Status != domain.ReservationConfirmed {
			respondErr(c, errTicketNotIssued)
			return
		}

		png, err := qrcode.Encode(ticketPayload(res), qrcode.Medium, 256)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "private, no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}

func ticketPayload(res *domain.Reservation) string {
	return fmt.Sprintf("concertix:ticket:%s:concert:%d:seat:%s", res.ID, res.ConcertID, res.SeatLabel)
}

// @Summary  Cancel reservation
// @Param    id  path  string  true  "Reservation ID (uuid)"
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  204
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already cancelled / window closed"
// @Router   /reservations/{id}/cancel [post]
func handleCancelReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Reservation.Cancel(c.Request.Context(), id, actorFrom(c)); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  My reservations, newest first
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  200 {array} ReservationResponse
// @Router   /me/reservations [get]
func handleListMyReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.ListUserReservations(c.Request.Context(), actorFrom(c).UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		out := make([]ReservationResponse, 0, len(list))
		for i := range list {
			out = append(out, toReservationResponse(&list[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  My point balance and journal
// @Param    X-User-ID  header  int  true  "Caller"
// @Success  200 {object} PointsResponse
// @Failure  404 {object} ErrorResponse
// @Router   /me/points [get]
func handleMyPoints(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, history, err := svcs.Query.Points(c.Request.Context(), actorFrom(c).UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		resp := PointsResponse{Balance: balance, History: make([]PointEntryResponse, 0, len(history))}
		for _, e := range history {
			entry := PointEntryResponse{
				ID:           e.ID,
				Delta:        e.Delta,
				BalanceAfter: e.BalanceAfter,
				Kind:         string(e.Kind),
				CreatedAt:    e.CreatedAt,
			}
			if e.ReservationID != uuid.Nil {
				entry.ReservationID = e.ReservationID.String()
			}
			resp.History = append(resp.History, entry)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// bindOptionalJSON binds a JSON body when one was sent.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}
