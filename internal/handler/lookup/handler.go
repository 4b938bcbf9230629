package lookup

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/TomasB/ipcountry/internal/resolver"
	"github.com/TomasB/ipcountry/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	invalidAddressBody = "IP is not valid"
	internalErrorBody  = "Internal server error"
)

// CountryResponse represents the JSON response for a successful lookup.
type CountryResponse struct {
	Country string `json:"country"`
}

// SnapshotReader hands out references to the current database snapshot.
type SnapshotReader interface {
	Read() (*store.Ref, error)
}

// Handler manages IP to country lookup endpoints.
type Handler struct {
	snapshots SnapshotReader
}

// NewHandler creates a new lookup handler reading from the given snapshots.
func NewHandler(snapshots SnapshotReader) *Handler {
	return &Handler{snapshots: snapshots}
}

// Lookup handles GET /:ip
func (h *Handler) Lookup(c *gin.Context) {
	ip := c.Param("ip")

	ref, err := h.snapshots.Read()
	if err != nil {
		slog.Error("failed to acquire database", "ip", ip, "error", err)
		metrics.LookupsTotal.WithLabelValues("http", metrics.OutcomeUnavailable).Inc()
		c.String(http.StatusInternalServerError, internalErrorBody)
		return
	}
	defer ref.Release()

	country, err := resolver.Resolve(ip, ref.Database())
	if err != nil {
		if errors.Is(err, resolver.ErrInvalidAddress) {
			slog.Debug("invalid IP requested", "ip", ip)
			metrics.LookupsTotal.WithLabelValues("http", metrics.OutcomeInvalidAddress).Inc()
			c.String(http.StatusNotFound, invalidAddressBody)
			return
		}

		slog.Error("error finding IP country", "ip", ip, "generation", ref.Generation(), "error", err)
		metrics.LookupsTotal.WithLabelValues("http", outcome(err)).Inc()
		c.String(http.StatusInternalServerError, internalErrorBody)
		return
	}

	metrics.LookupsTotal.WithLabelValues("http", metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, CountryResponse{Country: country})
}

func outcome(err error) string {
	if errors.Is(err, resolver.ErrNotFound) {
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeDatabaseFault
}
