package controlplane

import "github.com/authdns/authdns/internal/store"

// ErrorResponse is the JSON body for any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a simple success acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}

// ZoneRequest is the body for creating a zone.
type ZoneRequest struct {
	Name       string `json:"name" binding:"required"`
	SOAMName   string `json:"soa_mname" binding:"required"`
	SOARName   string `json:"soa_rname" binding:"required"`
	SOARefresh uint32 `json:"soa_refresh"`
	SOARetry   uint32 `json:"soa_retry"`
	SOAExpire  uint32 `json:"soa_expire"`
	SOAMinimum uint32 `json:"soa_minimum"`
}

// ZoneResponse mirrors store.Zone for JSON output.
type ZoneResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SOAMName   string `json:"soa_mname"`
	SOARName   string `json:"soa_rname"`
	SOASerial  uint32 `json:"soa_serial"`
	SOARefresh uint32 `json:"soa_refresh"`
	SOARetry   uint32 `json:"soa_retry"`
	SOAExpire  uint32 `json:"soa_expire"`
	SOAMinimum uint32 `json:"soa_minimum"`
}

func zoneResponse(z store.Zone) ZoneResponse {
	return ZoneResponse{
		ID: z.ID, Name: z.Name, SOAMName: z.SOAMName, SOARName: z.SOARName,
		SOASerial: z.SOASerial, SOARefresh: z.SOARefresh, SOARetry: z.SOARetry,
		SOAExpire: z.SOAExpire, SOAMinimum: z.SOAMinimum,
	}
}

// RecordRequest is the body for creating a record within a zone. Weight
// omitted (<= 0) defaults to 100. Enabled omitted defaults to true; it is
// a pointer so an explicit "false" can be told apart from "not sent".
type RecordRequest struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Value     string `json:"value" binding:"required"`
	TTL       uint32 `json:"ttl"`
	Weight    int    `json:"weight"`
	GeoCIDR   string `json:"geo_cidr"`
	HealthURL string `json:"health_url"`
	Enabled   *bool  `json:"enabled"`
}

// RecordResponse mirrors store.Record for JSON output.
type RecordResponse struct {
	ID        int64  `json:"id"`
	ZoneID    int64  `json:"zone_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	TTL       uint32 `json:"ttl"`
	Weight    int    `json:"weight"`
	GeoCIDR   string `json:"geo_cidr,omitempty"`
	Healthy   bool   `json:"healthy"`
	HealthURL string `json:"health_url,omitempty"`
	Enabled   bool   `json:"enabled"`
}

func recordResponse(r store.Record) RecordResponse {
	return RecordResponse{
		ID: r.ID, ZoneID: r.ZoneID, Name: r.Name, Type: r.Type, Value: r.Value,
		TTL: r.TTL, Weight: r.Weight, GeoCIDR: r.GeoCIDR, Healthy: r.Healthy, HealthURL: r.HealthURL,
		Enabled: r.Enabled,
	}
}

// DDNSCredentialRequest provisions or rotates a DDNS token for an FQDN.
// TTL omitted (0) defaults to 60 in the store. Enabled omitted defaults
// to true.
type DDNSCredentialRequest struct {
	FQDN    string `json:"fqdn" binding:"required"`
	Token   string `json:"token" binding:"required"`
	TTL     uint32 `json:"ttl"`
	Enabled *bool  `json:"enabled"`
}

// DDNSUpdateRequest is the body for POST /update. IP is optional: when
// absent the caller's own address is resolved from the request.
type DDNSUpdateRequest struct {
	FQDN  string `json:"fqdn" binding:"required"`
	Token string `json:"token" binding:"required"`
	IP    string `json:"ip"`
}

// DDNSUpdateResponse reports the outcome of a DDNS update.
type DDNSUpdateResponse struct {
	FQDN    string `json:"fqdn"`
	IP      string `json:"ip"`
	Changed bool   `json:"changed"`
}

// HealthzResponse is the body for GET /healthz.
type HealthzResponse struct {
	Status      string `json:"status"`
	CacheSize   int    `json:"cache_entries"`
	StoreHealth string `json:"store,omitempty"`
}
