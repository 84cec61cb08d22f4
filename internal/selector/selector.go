// Package selector implements the per-query selection engine: given a
// resolved zone and a question, it narrows the zone's records down to the
// answer set a particular resolver should see, applying geo preference,
// health filtering, and weighted random choice in that order.
package selector

import (
	"fmt"
	"math/rand"
	"net/netip"
	"sort"
	"strings"

	"github.com/authdns/authdns/internal/dnswire"
	"github.com/authdns/authdns/internal/store"
)

// addressTypes are the record types for which the engine narrows the
// candidate set down to a single weighted pick, because they steer load
// toward one of several interchangeable endpoints. Other types (NS, MX,
// TXT, CAA, SRV) are informational or structural and are always returned
// in full once geo/health filtering has run.
var addressTypes = map[string]bool{"A": true, "AAAA": true}

// allTypes is the fixed list of RR types ANY dispatch walks, in this order.
// SOA is excluded: it is served from the zone row, not a records row.
var allTypes = []string{"A", "AAAA", "NS", "CNAME", "MX", "TXT", "SRV", "CAA", "PTR"}

// Result is the outcome of selecting an answer for one question.
type Result struct {
	Zone        store.Zone
	Answers     []dnswire.Record
	Additionals []dnswire.Record
	RCode       dnswire.RCode
	Authority   []dnswire.Record // populated on negative answers
}

// Lookuper is the subset of *store.Store the selector needs, so tests can
// supply a fake. LookupByName returns every row owned by name across all
// types in one call, with CNAME rows sorted first; Select filters and
// dispatches by type in memory rather than issuing a per-type query.
type Lookuper interface {
	ResolveZone(qname string) (store.Zone, bool, error)
	LookupByName(zoneID int64, name string) ([]store.Record, error)
	Authority(zoneID int64) ([]store.Record, error)
}

// Select runs the full pipeline for one question and returns the answer
// set a response should carry. resolverIP is the source address of the
// query, used for geo partitioning.
func Select(st Lookuper, qname string, qtype dnswire.RecordType, resolverIP netip.Addr) (Result, error) {
	zone, ok, err := st.ResolveZone(qname)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{RCode: dnswire.RCodeRefused}, nil
	}

	rows, err := st.LookupByName(zone.ID, qname)
	if err != nil {
		return Result{}, err
	}
	rows = filterEnabled(rows)

	if qtype == dnswire.TypeANY {
		return selectAny(st, zone, rows, resolverIP)
	}

	tn := typeName(qtype)
	if tn == "" {
		return Result{Zone: zone, RCode: dnswire.RCodeNotImp}, nil
	}

	// A CNAME at qname always wins over any coexisting A/AAAA rows,
	// regardless of whether the requested type's own rows are present.
	if tn == "A" || tn == "AAAA" {
		if cnames := lookupType(rows, "CNAME"); len(cnames) > 0 {
			cnameAnswer, cnameTargets, cerr := chaseCNAME(st, zone, cnames[0], tn)
			if cerr != nil {
				return Result{}, cerr
			}
			if cnameAnswer != nil {
				answers := append([]dnswire.Record{*cnameAnswer}, cnameTargets...)
				return Result{Zone: zone, Answers: answers, Additionals: cnameTargets, RCode: dnswire.RCodeNoError}, nil
			}
		}
	}

	candidates := lookupType(rows, tn)
	if len(candidates) == 0 {
		return negativeResult(st, zone, rows)
	}

	picked, err := narrow(candidates, tn, resolverIP)
	if err != nil {
		return Result{}, err
	}

	answers := make([]dnswire.Record, 0, len(picked))
	for _, r := range picked {
		rr, err := toWireRecord(r)
		if err != nil {
			return Result{}, err
		}
		answers = append(answers, rr)
	}
	return Result{Zone: zone, Answers: answers, RCode: dnswire.RCodeNoError}, nil
}

// selectAny aggregates every record type at qname, applying geo/health
// filtering per type but skipping the weighted single-pick reduction:
// an ANY query asks for everything the name has, not a steered choice.
func selectAny(st Lookuper, zone store.Zone, rows []store.Record, resolverIP netip.Addr) (Result, error) {
	var answers []dnswire.Record
	for _, t := range allTypes {
		candidates := lookupType(rows, t)
		if len(candidates) == 0 {
			continue
		}
		filtered := applyGeoAndHealth(candidates, resolverIP)
		for _, r := range filtered {
			rr, err := toWireRecord(r)
			if err != nil {
				return Result{}, err
			}
			answers = append(answers, rr)
		}
	}
	if len(answers) == 0 {
		return negativeResult(st, zone, rows)
	}
	return Result{Zone: zone, Answers: answers, RCode: dnswire.RCodeNoError}, nil
}

// chaseCNAME resolves cname's target against the zone's own data (single-
// hop, matching the zone's own authoritative data; it does not follow
// chains into other zones), returning the CNAME answer plus any matching
// records at the target; Select puts those target records in both the
// answer and the additional section.
func chaseCNAME(st Lookuper, zone store.Zone, cname store.Record, typeName string) (*dnswire.Record, []dnswire.Record, error) {
	wire, err := toWireRecord(cname)
	if err != nil {
		return nil, nil, err
	}

	targetRows, err := st.LookupByName(zone.ID, cname.Value)
	if err != nil {
		return nil, nil, err
	}
	targets := lookupType(filterEnabled(targetRows), typeName)

	var additionals []dnswire.Record
	for _, t := range targets {
		w, err := toWireRecord(t)
		if err != nil {
			return nil, nil, err
		}
		additionals = append(additionals, w)
	}
	return &wire, additionals, nil
}

// negativeResult distinguishes NXDOMAIN (name has no enabled records of
// any type in this zone) from NODATA (name exists, just not for this
// qtype). On NODATA it attaches the zone's NS records to the authority
// section; the SOA record itself is assembled by internal/server, which
// already holds the zone row and can encode it directly.
func negativeResult(st Lookuper, zone store.Zone, rows []store.Record) (Result, error) {
	if len(rows) == 0 {
		return Result{Zone: zone, RCode: dnswire.RCodeNXDomain}, nil
	}

	nsRows, err := st.Authority(zone.ID)
	if err != nil {
		return Result{}, err
	}
	var authority []dnswire.Record
	for _, r := range filterEnabled(nsRows) {
		wire, err := toWireRecord(r)
		if err != nil {
			return Result{}, err
		}
		authority = append(authority, wire)
	}
	return Result{Zone: zone, RCode: dnswire.RCodeNoError, Authority: authority}, nil
}

// narrow runs the geo -> health -> weighted-pick pipeline for address
// types, or geo -> health only for everything else.
func narrow(candidates []store.Record, typeName string, resolverIP netip.Addr) ([]store.Record, error) {
	filtered := applyGeoAndHealth(candidates, resolverIP)
	if len(filtered) == 0 {
		return nil, nil
	}
	if !addressTypes[typeName] {
		return filtered, nil
	}
	return []store.Record{weightedPick(filtered)}, nil
}

// applyGeoAndHealth drops disabled records, partitions the rest by geo
// match (preferring an exact-CIDR-match subset when one exists, else the
// records with no geo restriction, else the full set), and then
// drops unhealthy records, failing open (keeping the full set) if that
// would empty it.
func applyGeoAndHealth(candidates []store.Record, resolverIP netip.Addr) []store.Record {
	candidates = filterEnabled(candidates)

	geoMatched := make([]store.Record, 0, len(candidates))
	var untargeted []store.Record
	for _, r := range candidates {
		if r.GeoCIDR == "" {
			untargeted = append(untargeted, r)
			continue
		}
		prefix, err := netip.ParsePrefix(r.GeoCIDR)
		if err != nil {
			continue
		}
		if resolverIP.IsValid() && prefix.Contains(resolverIP) {
			geoMatched = append(geoMatched, r)
		}
	}

	pool := geoMatched
	if len(pool) == 0 && resolverIP.IsValid() {
		pool = untargeted
	}
	if len(pool) == 0 {
		pool = candidates
	}

	healthy := make([]store.Record, 0, len(pool))
	for _, r := range pool {
		if r.Healthy {
			healthy = append(healthy, r)
		}
	}
	if len(healthy) == 0 {
		return pool
	}
	return healthy
}

// filterEnabled drops rows with enabled = false; disabled records are
// invisible to resolution regardless of geo, health, or weight.
func filterEnabled(rows []store.Record) []store.Record {
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// lookupType filters an already-fetched row set down to one RR type,
// preserving order.
func lookupType(rows []store.Record, typeName string) []store.Record {
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		if r.Type == typeName {
			out = append(out, r)
		}
	}
	return out
}

// weightedPick chooses one record using weight as a relative share of the
// total, iterating candidates in ascending record-id order first so the
// same candidate set always maps the same random draw to the same record.
func weightedPick(candidates []store.Record) store.Record {
	ordered := make([]store.Record, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	total := 0
	for _, r := range ordered {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		total += w
	}
	if total <= 0 {
		return ordered[0]
	}

	draw := rand.Intn(total)
	acc := 0
	for _, r := range ordered {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		acc += w
		if draw < acc {
			return r
		}
	}
	return ordered[len(ordered)-1]
}

func typeName(t dnswire.RecordType) string {
	switch t {
	case dnswire.TypeA:
		return "A"
	case dnswire.TypeAAAA:
		return "AAAA"
	case dnswire.TypeCNAME:
		return "CNAME"
	case dnswire.TypeNS:
		return "NS"
	case dnswire.TypeMX:
		return "MX"
	case dnswire.TypeTXT:
		return "TXT"
	case dnswire.TypeSRV:
		return "SRV"
	case dnswire.TypeCAA:
		return "CAA"
	case dnswire.TypePTR:
		return "PTR"
	default:
		return ""
	}
}

func toWireRecord(r store.Record) (dnswire.Record, error) {
	data, err := store.DecodeValue(r.Type, r.Value)
	if err != nil {
		return dnswire.Record{}, err
	}
	t, ok := store.WireType(r.Type)
	if !ok {
		return dnswire.Record{}, fmt.Errorf("unsupported record type %q", r.Type)
	}
	return dnswire.Record{
		Name:  strings.TrimSuffix(r.Name, "."),
		Type:  uint16(t),
		Class: uint16(dnswire.ClassIN),
		TTL:   r.TTL,
		Data:  data,
	}, nil
}
