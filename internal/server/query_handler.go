// Package server implements the UDP DNS server: socket setup, worker pool,
// and the per-query pipeline that turns a wire request into a wire
// response using the store, cache, selector and rate limiter.
//
// Goroutine Model:
//
// The server spawns multiple goroutines for handling incoming queries:
//   - UDPServer: 1 receiver + N workers per CPU core
//
// All goroutines are coordinated through a shared context:
//   - Context is cancelled on shutdown signal (SIGINT/SIGTERM)
//   - All goroutines check context regularly and exit cleanly
//   - No long-lived blocking operations without context awareness
//
// Error Handling:
//
// Errors are wrapped with context using fmt.Errorf("...: %w", err) throughout.
// This preserves error chains while adding operational context.
package server

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/authdns/authdns/internal/cache"
	"github.com/authdns/authdns/internal/dnswire"
	"github.com/authdns/authdns/internal/metrics"
	"github.com/authdns/authdns/internal/selector"
	"github.com/authdns/authdns/internal/store"
)

// QueryHandler turns a raw UDP payload into a raw UDP response, resolving
// through the cache first and the store/selector pipeline on a miss. The
// cache holds the unfiltered row set per canonical name; selection itself
// (geo/health/weight) always runs fresh, on cache hits too.
type QueryHandler struct {
	Logger  *slog.Logger
	Store   *store.Store
	Cache   *cache.Cache[[]store.Record]
	Metrics *metrics.Metrics
	Timeout time.Duration // per-query budget (default: 4s)
}

// cachingLookuper adapts Store+Cache into a selector.Lookuper: every row
// fetch by name is served from cache when present, populated on miss.
// It tracks whether any row fetch for the query was a cache hit so the caller
// can label the overall query's Source for logging/metrics.
type cachingLookuper struct {
	store   *store.Store
	cache   *cache.Cache[[]store.Record]
	metrics *metrics.Metrics
	hit     bool
}

func (l *cachingLookuper) ResolveZone(qname string) (store.Zone, bool, error) {
	return l.store.ResolveZone(qname)
}

func (l *cachingLookuper) Authority(zoneID int64) ([]store.Record, error) {
	return l.store.Authority(zoneID)
}

func (l *cachingLookuper) LookupByName(zoneID int64, name string) ([]store.Record, error) {
	if rows, ok := l.cache.Get(name); ok {
		l.hit = true
		if l.metrics != nil {
			l.metrics.CacheHitsTotal.Inc()
		}
		return rows, nil
	}
	if l.metrics != nil {
		l.metrics.CacheMissesTotal.Inc()
	}
	rows, err := l.store.LookupByName(zoneID, name)
	if err != nil {
		return nil, err
	}
	l.cache.Set(name, rows)
	return rows, nil
}

// HandleResult contains the outcome of query processing.
type HandleResult struct {
	ResponseBytes []byte
	Source        string // cache, store, error-kind, for logging
	Parsed        dnswire.Packet
	ParsedOK      bool
}

// Handle processes a DNS request and returns a response.
//
// Processing steps:
//  1. Parse the raw request bytes
//  2. Resolve via cache or the store/selector pipeline, with a timeout
//  3. Build a wire response, recording metrics
//  4. Log at debug level
func (h *QueryHandler) Handle(ctx context.Context, transport string, src string, reqBytes []byte) HandleResult {
	parsed, err := dnswire.ParseRequestBounded(reqBytes)
	if err != nil {
		return h.handleParseError(reqBytes)
	}

	q := parsed.Questions[0]
	result := h.resolveWithTimeout(ctx, parsed, src)

	h.logRequest(ctx, transport, src, parsed, q, len(reqBytes), result.Source)
	h.recordMetric(result.rcode)

	return HandleResult{
		ResponseBytes: result.bytes,
		Source:        result.Source,
		Parsed:        parsed,
		ParsedOK:      true,
	}
}

// handleParseError attempts to build an error response from a malformed request.
func (h *QueryHandler) handleParseError(reqBytes []byte) HandleResult {
	resp := tryBuildErrorFromRaw(reqBytes, uint16(dnswire.RCodeFormErr))
	if resp == nil {
		return HandleResult{ResponseBytes: nil, Source: "parse-error", ParsedOK: false}
	}
	h.recordMetric(dnswire.RCodeFormErr)
	return HandleResult{ResponseBytes: resp, Source: "formerr", ParsedOK: false}
}

type resolved struct {
	bytes  []byte
	Source string
	rcode  dnswire.RCode
}

// resolveWithTimeout runs the selection pipeline with a timeout.
//
// Design note: This spawns a goroutine per query to enforce a timeout
// without blocking the worker pool. An alternative would make the store
// and selector context-aware internally, but that pushes cancellation
// plumbing into every query path for a benefit only the rare slow query
// needs. The current approach keeps timeout enforcement isolated here.
func (h *QueryHandler) resolveWithTimeout(ctx context.Context, parsed dnswire.Packet, src string) resolved {
	resCh := make(chan resolved, 1)
	go func() {
		resCh <- h.resolve(parsed, src)
	}()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return h.errorResult(parsed, "shutdown", dnswire.RCodeServFail)
	case <-timer.C:
		return h.errorResult(parsed, "timeout", dnswire.RCodeServFail)
	case r := <-resCh:
		return r
	}
}

// resolve answers one question via the selector pipeline, which fetches
// its row sets through a cachingLookuper (cache-or-store per name).
func (h *QueryHandler) resolve(parsed dnswire.Packet, src string) resolved {
	q := parsed.Questions[0]
	resolverIP, _ := netip.ParseAddr(src)

	lookuper := &cachingLookuper{store: h.Store, cache: h.Cache, metrics: h.Metrics}
	result, err := selector.Select(lookuper, q.Name, dnswire.RecordType(q.Type), resolverIP)
	if err != nil {
		return h.errorResult(parsed, "servfail", dnswire.RCodeServFail)
	}

	source := "store"
	if lookuper.hit {
		source = "cache"
	}
	return resolved{bytes: mustMarshal(buildResponse(parsed, result)), Source: source, rcode: result.RCode}
}

func (h *QueryHandler) errorResult(parsed dnswire.Packet, source string, rcode dnswire.RCode) resolved {
	return resolved{
		bytes:  mustMarshal(dnswire.BuildErrorResponse(parsed, uint16(rcode))),
		Source: source,
		rcode:  rcode,
	}
}

func (h *QueryHandler) recordMetric(rcode dnswire.RCode) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.QueriesTotal.WithLabelValues(rcodeLabel(rcode)).Inc()
}

// buildResponse assembles the final response packet from a selection
// result: answers/additionals as selected, and for a negative or NODATA
// answer, the zone's SOA in the authority section.
func buildResponse(req dnswire.Packet, result selector.Result) dnswire.Packet {
	flags := responseFlags(req.Header.Flags, uint16(result.RCode))

	var authority []dnswire.Record
	if len(result.Answers) == 0 && result.Zone.Name != "" {
		authority = append(authority, soaRecord(result.Zone))
	}
	authority = append(authority, result.Authority...)

	return dnswire.Packet{
		Header: dnswire.Header{
			ID:    req.Header.ID,
			Flags: flags,
		},
		Questions:   req.Questions,
		Answers:     result.Answers,
		Authorities: authority,
		Additionals: result.Additionals,
	}
}

// responseFlags sets QR and AA, preserves RD from the request, and writes
// the response code into the low 4 bits.
func responseFlags(reqFlags uint16, rcode uint16) uint16 {
	flags := dnswire.QRFlag | dnswire.AAFlag
	flags |= reqFlags & dnswire.RDFlag
	rcode &= dnswire.RCodeMask
	flags = (flags &^ dnswire.RCodeMask) | rcode
	return flags
}

// soaRecord encodes a zone's SOA row as an RR for the authority section.
func soaRecord(zone store.Zone) dnswire.Record {
	mname, _ := dnswire.EncodeName(zone.SOAMName)
	rname, _ := dnswire.EncodeName(zone.SOARName)

	rdata := make([]byte, 0, len(mname)+len(rname)+20)
	rdata = append(rdata, mname...)
	rdata = append(rdata, rname...)
	var nums [20]byte
	binary.BigEndian.PutUint32(nums[0:4], zone.SOASerial)
	binary.BigEndian.PutUint32(nums[4:8], zone.SOARefresh)
	binary.BigEndian.PutUint32(nums[8:12], zone.SOARetry)
	binary.BigEndian.PutUint32(nums[12:16], zone.SOAExpire)
	binary.BigEndian.PutUint32(nums[16:20], zone.SOAMinimum)
	rdata = append(rdata, nums[:]...)

	return dnswire.Record{
		Name:  strings.TrimSuffix(zone.Name, "."),
		Type:  uint16(dnswire.TypeSOA),
		Class: uint16(dnswire.ClassIN),
		TTL:   zone.SOAMinimum,
		Data:  rdata,
	}
}

func rcodeLabel(rcode dnswire.RCode) string {
	switch rcode {
	case dnswire.RCodeNoError:
		return "noerror"
	case dnswire.RCodeFormErr:
		return "formerr"
	case dnswire.RCodeServFail:
		return "servfail"
	case dnswire.RCodeNXDomain:
		return "nxdomain"
	case dnswire.RCodeNotImp:
		return "notimp"
	case dnswire.RCodeRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// logRequest logs DNS request details at debug level.
func (h *QueryHandler) logRequest(
	ctx context.Context,
	transport, src string,
	parsed dnswire.Packet,
	q dnswire.Question,
	reqLen int,
	source string,
) {
	if h.Logger == nil || !h.Logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	h.Logger.DebugContext(
		ctx,
		"dns request",
		"transport", transport,
		"src", src,
		"id", int(parsed.Header.ID),
		"qname", q.Name,
		"qtype", q.Type,
		"bytes", reqLen,
		"source", source,
	)
}

// mustMarshal serializes a DNS packet, returning nil on error.
func mustMarshal(p dnswire.Packet) []byte {
	b, err := p.Marshal()
	if err != nil {
		return nil
	}
	return b
}

// tryBuildErrorFromRaw attempts to construct an error response from raw
// bytes, when request parsing failed but enough of the header/question
// survived to build a valid error response. Returns nil if even the
// header cannot be parsed.
func tryBuildErrorFromRaw(reqBytes []byte, rcode uint16) []byte {
	off := 0
	hdr, err := dnswire.ParseHeader(reqBytes, &off)
	if err != nil {
		return nil
	}

	var questions []dnswire.Question
	if hdr.QDCount > 0 {
		q, err := dnswire.ParseQuestion(reqBytes, &off)
		if err == nil {
			questions = []dnswire.Question{q}
		}
	}

	p := dnswire.Packet{Header: dnswire.Header{ID: hdr.ID, Flags: hdr.Flags}, Questions: questions}
	b, _ := dnswire.BuildErrorResponse(p, rcode).Marshal()
	return b
}
