package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"quantshared/internal/delivery/http/dto"
	"quantshared/internal/domain"
	"quantshared/internal/validation"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500

	// ingestTimeout covers a whole batch
	ingestTimeout = 30 * time.Second

	storeSource = "postgres"
)

// MarketDataHandler serves stored bars and accepts new ones
type MarketDataHandler struct {
	repo      domain.MarketDataRepository
	publisher domain.EventPublisher
	now       func() time.Time
}

// NewMarketDataHandler creates a new MarketDataHandler
func NewMarketDataHandler(repo domain.MarketDataRepository, publisher domain.EventPublisher) *MarketDataHandler {
	return &MarketDataHandler{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// ListSymbols returns one page of stored symbols
// GET /api/market-data?page=1&limit=50
func (h *MarketDataHandler) ListSymbols(c echo.Context) error {
	page, limit := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	symbols, err := h.repo.ListSymbols(ctx, limit, (page-1)*limit)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to list symbols", err)
	}
	total, err := h.repo.CountSymbols(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to count symbols", err)
	}

	resp, err := domain.NewPaginatedResponse(symbols, domain.NewPagination(page, limit, total))
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to encode symbols", err)
	}
	return SuccessResponse(c, resp)
}

// GetBars returns the bars of a symbol as a time series
// GET /api/market-data/:symbol?start_date=...&end_date=...&interval=1day&source=yahoo
func (h *MarketDataHandler) GetBars(c echo.Context) error {
	query, err := dataQueryFromRequest(c)
	if err != nil {
		return HandleError(c, err, "Invalid query")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bars, err := h.repo.GetBars(ctx, query)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to fetch bars", err)
	}
	if bars == nil {
		bars = []domain.OHLCVBar{}
	}

	source := storeSource
	if query.Source != nil {
		source = *query.Source
	}

	series := domain.TimeSeries{
		Symbol: query.Symbol,
		Data:   bars,
		Metadata: domain.TimeSeriesMetadata{
			Source:      source,
			LastUpdated: h.now().UTC(),
			Frequency:   query.Interval,
		},
	}
	if err := series.Validate(); err != nil {
		return InternalServerErrorResponse(c, "Stored bars failed validation", err)
	}
	return SuccessResponse(c, series)
}

// GetLatest returns the newest bar of a symbol
// GET /api/market-data/:symbol/latest
func (h *MarketDataHandler) GetLatest(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bar, err := h.repo.GetLatest(ctx, symbol)
	if err != nil {
		return HandleError(c, err, "Failed to fetch latest bar")
	}
	return SuccessResponse(c, bar)
}

// Ingest stores a batch of bars, one transaction per symbol, and publishes a
// data.ingested or data.failed event for each symbol. A storage failure stops
// the batch with a 500 whose details carry the per-symbol results so far:
// symbols stored before the failure stay committed.
// POST /api/market-data/bars
func (h *MarketDataHandler) Ingest(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestResponse(c, "Failed to read request body")
	}

	req, err := validation.Decode[dto.IngestRequest](body)
	if err != nil {
		return HandleError(c, err, "Invalid ingest request")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), ingestTimeout)
	defer cancel()

	resp := dto.IngestResponse{Symbols: []dto.SymbolIngestResult{}}
	for _, group := range groupBySymbol(req.Bars) {
		symbol := strings.ToUpper(strings.TrimSpace(group[0].Symbol))

		result, err := h.repo.InsertBars(ctx, req.Source, group)
		if err != nil {
			log.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Str("symbol", symbol).
				Int("committed_symbols", len(resp.Symbols)).
				Msg("Failed to store bars")
			h.publish(ctx, domain.NewDataFailedEvent(req.Source, symbol, "storage failed"))
			resp.Symbols = append(resp.Symbols, dto.SymbolIngestResult{
				Symbol: symbol,
				Errors: []string{"storage failed"},
			})
			return ErrorResponse(c, http.StatusInternalServerError, CodeInternal, "Failed to store bars", resp)
		}

		resp.Inserted += result.Inserted
		resp.Rejected += len(result.Errors)
		resp.Symbols = append(resp.Symbols, dto.SymbolIngestResult{
			Symbol:   symbol,
			Inserted: result.Inserted,
			Errors:   result.Errors,
		})

		if result.Inserted > 0 {
			h.publish(ctx, domain.NewDataIngestedEvent(req.Source, symbol, result.Inserted))
		} else {
			h.publish(ctx, domain.NewDataFailedEvent(req.Source, symbol, strings.Join(result.Errors, "; ")))
		}
	}

	log.Info().
		Str("source", req.Source).
		Int("inserted", resp.Inserted).
		Int("rejected", resp.Rejected).
		Msg("Bars ingested")

	return CreatedResponse(c, resp)
}

// publish is best effort; a lost event never fails the ingest
func (h *MarketDataHandler) publish(ctx context.Context, event domain.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.EventType())).Msg("Failed to publish event")
	}
}

// groupBySymbol splits bars by symbol, keeping first-seen order
func groupBySymbol(bars []domain.OHLCVBar) [][]domain.OHLCVBar {
	index := make(map[string]int)
	var groups [][]domain.OHLCVBar
	for _, bar := range bars {
		key := strings.ToUpper(strings.TrimSpace(bar.Symbol))
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], bar)
	}
	return groups
}

// dataQueryFromRequest builds a DataQuery from the path and query string through the
// schema decoder so problems come back attributed to their parameter.
func dataQueryFromRequest(c echo.Context) (domain.DataQuery, error) {
	doc := map[string]any{
		"symbol":   strings.ToUpper(strings.TrimSpace(c.Param("symbol"))),
		"interval": string(domain.Freq1Day),
	}
	for _, key := range []string{"start_date", "end_date", "interval", "source"} {
		if v := c.QueryParam(key); v != "" {
			doc[key] = v
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.DataQuery{}, err
	}
	return validation.Decode[domain.DataQuery](raw)
}

func parsePagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
