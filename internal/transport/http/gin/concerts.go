package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/concertix/internal/service"
)

// @Summary  Get concert
// @Param    id  path  int  true  "Concert ID"
// @Success  200  {object}  ConcertResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id} [get]
func handleGetConcert(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		concert, err := svcs.Query.GetConcert(c.Request.Context(), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, toConcertResponse(concert), "public, max-age=60")
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Concert ID"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		sc, err := svcs.Query.Availability(c.Request.Context(), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, AvailabilityResponse{
			Available: sc.Available,
			Held:      sc.Held,
			Booked:    sc.Booked,
			Released:  sc.Released,
			Total:     sc.Total,
		}, "public, max-age=15")
	}
}

// @Summary  List concert seats
// @Param    id    path   int     true   "Concert ID"
// @Param    only  query  string  false  "available"
// @Success  200  {array}   SeatResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id}/seats [get]
func handleListSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		onlyAvailable := c.Query("only") == "available"

		seats, err := svcs.Query.ListSeats(c.Request.Context(), concertID, onlyAvailable)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]SeatResponse, 0, len(seats))
		for _, s := range seats {
			out = append(out, SeatResponse{
				ID:            s.ID,
				Label:         s.Label,
				Status:        string(s.Status),
				HoldExpiresAt: s.HoldExpiresAt,
			})
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15")
	}
}
