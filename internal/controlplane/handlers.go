// Package controlplane implements the service's management HTTP API:
// zone and record CRUD against the durable store, DDNS credential
// provisioning, the DDNS update endpoint, and operational surfaces
// (/healthz, /metrics). It is deliberately not a user-facing control
// panel: no accounts, no session management, no generated API docs —
// just the JSON endpoints an operator's own tooling talks to.
package controlplane

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/authdns/authdns/internal/ddns"
	"github.com/authdns/authdns/internal/store"
)

// cache is the subset of *cache.Cache[[]store.Record] the control plane
// needs: clearing it after any write, and reporting its size for /healthz.
type cache interface {
	Clear()
	Len() int
}

// Handler holds the control plane's dependencies.
type Handler struct {
	store   *store.Store
	cache   cache
	updater *ddns.Updater
	logger  *slog.Logger
}

// newHandler builds a Handler.
func newHandler(st *store.Store, c cache, updater *ddns.Updater, logger *slog.Logger) *Handler {
	return &Handler{store: st, cache: c, updater: updater, logger: logger}
}

func (h *Handler) respondError(c *gin.Context, status int, err error) {
	if h.logger != nil {
		h.logger.Warn("control plane error", "status", status, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// ListZones returns every configured zone.
func (h *Handler) ListZones(c *gin.Context) {
	zones, err := h.store.ListZones()
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]ZoneResponse, 0, len(zones))
	for _, z := range zones {
		out = append(out, zoneResponse(z))
	}
	c.JSON(http.StatusOK, out)
}

// CreateZone creates a new authoritative zone.
func (h *Handler) CreateZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := h.store.CreateZone(store.Zone{
		Name: req.Name, SOAMName: req.SOAMName, SOARName: req.SOARName,
		SOARefresh: req.SOARefresh, SOARetry: req.SOARetry,
		SOAExpire: req.SOAExpire, SOAMinimum: req.SOAMinimum,
	})
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	h.cache.Clear()

	z, err := h.store.GetZone(req.Name)
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err)
		return
	}
	_ = id
	c.JSON(http.StatusCreated, zoneResponse(z))
}

// GetZone returns one zone by name.
func (h *Handler) GetZone(c *gin.Context) {
	z, err := h.store.GetZone(c.Param("name"))
	if err != nil {
		h.respondError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, zoneResponse(z))
}

// DeleteZone removes a zone and its records.
func (h *Handler) DeleteZone(c *gin.Context) {
	if err := h.store.DeleteZone(c.Param("name")); err != nil {
		h.respondError(c, http.StatusNotFound, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

// ListRecords returns every record in a zone.
func (h *Handler) ListRecords(c *gin.Context) {
	z, err := h.store.GetZone(c.Param("name"))
	if err != nil {
		h.respondError(c, http.StatusNotFound, err)
		return
	}
	records, err := h.store.ListRecords(z.ID)
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, recordResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// CreateRecord adds a record to a zone.
func (h *Handler) CreateRecord(c *gin.Context) {
	z, err := h.store.GetZone(c.Param("name"))
	if err != nil {
		h.respondError(c, http.StatusNotFound, err)
		return
	}

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}

	weight := req.Weight
	if weight <= 0 {
		weight = 100
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	id, err := h.store.CreateRecord(store.Record{
		ZoneID: z.ID, Name: req.Name, Type: req.Type, Value: req.Value,
		TTL: req.TTL, Weight: weight, GeoCIDR: req.GeoCIDR, HealthURL: req.HealthURL,
		Healthy: true, Enabled: enabled,
	})
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	h.cache.Clear()

	c.JSON(http.StatusCreated, RecordResponse{
		ID: id, ZoneID: z.ID, Name: req.Name, Type: req.Type, Value: req.Value,
		TTL: req.TTL, Weight: weight, GeoCIDR: req.GeoCIDR, Healthy: true, HealthURL: req.HealthURL,
		Enabled: enabled,
	})
}

// DeleteRecord removes a record by id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.store.DeleteRecord(id); err != nil {
		h.respondError(c, http.StatusNotFound, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

// CreateDDNSCredential binds a token to an FQDN for future DDNS updates.
// ZoneID is resolved best-effort at provisioning time (0 if fqdn doesn't
// yet fall under any zone); Apply() re-resolves the zone at update time
// regardless, so provisioning never requires the zone to exist first.
func (h *Handler) CreateDDNSCredential(c *gin.Context) {
	var req DDNSCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	var zoneID int64
	if z, ok, err := h.store.ResolveZone(req.FQDN); err == nil && ok {
		zoneID = z.ID
	}

	if _, err := h.store.CreateDDNSCredential(store.DDNSCredential{
		FQDN: req.FQDN, TokenHash: ddns.HashToken(req.Token),
		ZoneID: zoneID, TTL: req.TTL, Enabled: enabled,
	}); err != nil {
		h.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, StatusResponse{Status: "created"})
}

// DDNSUpdate applies a dynamic-DNS update, resolving the caller's address
// from the request when the body doesn't supply one.
func (h *Handler) DDNSUpdate(c *gin.Context) {
	var req DDNSUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}

	ip := ddns.ResolveClientIP(c.Request, req.IP)
	outcome, err := h.updater.Apply(req.FQDN, req.Token, ip, c.ClientIP())
	switch err {
	case nil:
		c.JSON(http.StatusOK, DDNSUpdateResponse{FQDN: outcome.FQDN, IP: outcome.IP, Changed: outcome.Changed})
	case ddns.ErrUnknownFQDN, ddns.ErrNotInZone:
		h.respondError(c, http.StatusNotFound, err)
	case ddns.ErrBadToken, ddns.ErrCredentialDisabled:
		h.respondError(c, http.StatusUnauthorized, err)
	default:
		h.respondError(c, http.StatusBadRequest, err)
	}
}

// Healthz reports store reachability and cache size.
func (h *Handler) Healthz(c *gin.Context) {
	resp := HealthzResponse{Status: "ok", CacheSize: h.cache.Len()}
	if err := h.store.Health(); err != nil {
		resp.Status = "degraded"
		resp.StoreHealth = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
