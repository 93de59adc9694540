package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moexdata/moexpulse/internal/domain/dto"
	"github.com/moexdata/moexpulse/internal/service"
)

// Handler provides HTTP handlers for the closing-price series endpoint.
//
// Responsibilities:
//   - Bind and validate the incoming JSON request
//   - Invoke the series service
//   - Return the aggregated per-ticker series as JSON
type Handler struct {
	svc service.SeriesService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.SeriesService) *Handler {
	return &Handler{svc: svc}
}

// FetchSeries handles POST /api/v1/stocks/series requests.
//
// The response maps each requested ticker to its date-keyed closing-price
// series. Tickers whose data could not be obtained (upstream or storage
// failure) appear with an empty series rather than failing the request;
// only input validation produces a non-200 response.
//
// FetchSeries godoc
// @Summary      Fetch closing-price series
// @Description  Returns daily closing prices per ticker for the requested date range, filling cache gaps from MOEX
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Param        request  body      dto.SeriesRequest  true  "Tickers and date range"
// @Success      200      {object}  map[string]map[string]float64  "ticker -> date -> closing price"
// @Failure      400      {object}  dto.ErrorResponse  "Bad Request"
// @Failure      500      {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/stocks/series [post]
func (h *Handler) FetchSeries(c *gin.Context) {
	var req dto.SeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err))
		return
	}

	tickers, rng, err := req.Parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request", err))
		return
	}

	// Per-ticker failures are contained inside the service and show up as
	// empty series; the aggregate call succeeds for any well-formed input.
	res := h.svc.FetchSeries(c.Request.Context(), tickers, rng)

	c.JSON(http.StatusOK, res.Series)
}
