package selector

import (
	"net/netip"
	"sort"
	"testing"
	"testing/quick"

	"github.com/authdns/authdns/internal/dnswire"
	"github.com/authdns/authdns/internal/store"
)

// fakeStore is an in-memory Lookuper for exercising the selection pipeline
// without a real database.
type fakeStore struct {
	zone    store.Zone
	zoneOK  bool
	records map[string][]store.Record // key: name
}

func (f *fakeStore) ResolveZone(qname string) (store.Zone, bool, error) {
	return f.zone, f.zoneOK, nil
}

func (f *fakeStore) LookupByName(zoneID int64, name string) ([]store.Record, error) {
	rows := make([]store.Record, len(f.records[name]))
	copy(rows, f.records[name])
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Type == "CNAME" && rows[j].Type != "CNAME"
	})
	return rows, nil
}

func (f *fakeStore) Authority(zoneID int64) ([]store.Record, error) {
	return nil, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		zone:    store.Zone{ID: 1, Name: "example.com"},
		zoneOK:  true,
		records: map[string][]store.Record{},
	}
}

// add appends a record, defaulting Enabled to true so call sites that
// don't care about the enabled/disabled invariant stay terse.
func (f *fakeStore) add(name, typ string, r store.Record) {
	r.Name = name
	r.Type = typ
	if r.Weight == 0 {
		r.Weight = 100
	}
	r.Enabled = true
	f.records[name] = append(f.records[name], r)
}

// addDisabled is like add but leaves the row disabled, for exercising the
// "disabled records are invisible" invariant.
func (f *fakeStore) addDisabled(name, typ string, r store.Record) {
	r.Name = name
	r.Type = typ
	f.records[name] = append(f.records[name], r)
}

func TestSelectRefusedWhenZoneUnresolved(t *testing.T) {
	f := newFakeStore()
	f.zoneOK = false
	res, err := Select(f, "nowhere.test", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeRefused {
		t.Errorf("RCode = %v, want Refused", res.RCode)
	}
}

func TestSelectSingleARecord(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1})

	res, err := Select(f, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNoError || len(res.Answers) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ip, ok := res.Answers[0].IPv4(); !ok || ip != "192.0.2.1" {
		t.Errorf("answer IP = %q, %v", ip, ok)
	}
}

func TestSelectNXDomainWhenNameAbsent(t *testing.T) {
	f := newFakeStore()
	res, err := Select(f, "nothing.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNXDomain {
		t.Errorf("RCode = %v, want NXDomain", res.RCode)
	}
}

func TestSelectNoDataWhenNameExistsOtherType(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "TXT", store.Record{ID: 1, Value: "hello", Healthy: true})

	res, err := Select(f, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNoError || len(res.Answers) != 0 {
		t.Errorf("expected NODATA (NoError, no answers), got %+v", res)
	}
}

func TestSelectNoDataCarriesAuthorityNSRecords(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "TXT", store.Record{ID: 1, Value: "hello", Healthy: true})

	res, err := Select(&nsFakeStore{fakeStore: f, ns: []store.Record{
		{ID: 99, Name: "example.com", Type: "NS", Value: "ns1.example.com", Healthy: true, Enabled: true},
	}}, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNoError {
		t.Fatalf("expected NODATA, got %+v", res)
	}
	if len(res.Authority) != 1 || res.Authority[0].Type != uint16(dnswire.TypeNS) {
		t.Fatalf("expected one NS authority record, got %+v", res.Authority)
	}
}

// nsFakeStore wraps fakeStore to supply a non-empty Authority result
// without complicating every other test's setup.
type nsFakeStore struct {
	*fakeStore
	ns []store.Record
}

func (n *nsFakeStore) Authority(zoneID int64) ([]store.Record, error) {
	return n.ns, nil
}

func TestSelectDisabledRecordsInvisible(t *testing.T) {
	f := newFakeStore()
	f.addDisabled("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1, Enabled: false})

	res, err := Select(f, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNXDomain {
		t.Fatalf("expected disabled record to be invisible (NXDomain), got %+v", res)
	}
}

func TestSelectHealthFailsOpen(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: false, Weight: 1})
	f.add("www.example.com", "A", store.Record{ID: 2, Value: "192.0.2.2", Healthy: false, Weight: 1})

	res, err := Select(f, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("expected one answer even though all unhealthy (fail open), got %d", len(res.Answers))
	}
}

func TestSelectHealthFiltersWhenSomeHealthy(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: false, Weight: 1})
	f.add("www.example.com", "A", store.Record{ID: 2, Value: "192.0.2.2", Healthy: true, Weight: 1})

	res, err := Select(f, "www.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("expected single weighted pick, got %d", len(res.Answers))
	}
	ip, _ := res.Answers[0].IPv4()
	if ip != "192.0.2.2" {
		t.Errorf("expected the healthy record to be picked, got %s", ip)
	}
}

func TestSelectGeoPartitionPrefersMatch(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1, GeoCIDR: "10.0.0.0/8"})
	f.add("www.example.com", "A", store.Record{ID: 2, Value: "192.0.2.2", Healthy: true, Weight: 1, GeoCIDR: "203.0.113.0/24"})

	resolverIP := netip.MustParseAddr("203.0.113.5")
	res, err := Select(f, "www.example.com", dnswire.TypeA, resolverIP)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("expected single answer, got %d", len(res.Answers))
	}
	ip, _ := res.Answers[0].IPv4()
	if ip != "192.0.2.2" {
		t.Errorf("expected geo-matched record, got %s", ip)
	}
}

func TestSelectGeoFailsOpenWhenNoMatch(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1, GeoCIDR: "10.0.0.0/8"})

	resolverIP := netip.MustParseAddr("198.51.100.5")
	res, err := Select(f, "www.example.com", dnswire.TypeA, resolverIP)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("expected fail-open to full candidate set, got %d answers", len(res.Answers))
	}
}

func TestSelectCNAMEChaseWhenNoDirectAnswer(t *testing.T) {
	f := newFakeStore()
	f.add("alias.example.com", "CNAME", store.Record{ID: 1, Value: "target.example.com"})
	f.add("target.example.com", "A", store.Record{ID: 2, Value: "192.0.2.9", Healthy: true, Weight: 1})

	res, err := Select(f, "alias.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 2 {
		t.Fatalf("expected CNAME + target answers, got %d", len(res.Answers))
	}
	if res.Answers[0].Type != uint16(dnswire.TypeCNAME) {
		t.Errorf("first answer should be the CNAME, got type %d", res.Answers[0].Type)
	}
}

func TestSelectCNAMEAlwaysWinsOverCoexistingARow(t *testing.T) {
	f := newFakeStore()
	// A row coexisting with a CNAME at the same name shouldn't happen via
	// CreateRecord's exclusivity check, but the selector must still prefer
	// the CNAME if one is ever present: it's the documented priority rule,
	// not just a consequence of ingest-time validation.
	f.add("alias.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1})
	f.add("alias.example.com", "CNAME", store.Record{ID: 2, Value: "target.example.com"})
	f.add("target.example.com", "A", store.Record{ID: 3, Value: "192.0.2.9", Healthy: true, Weight: 1})

	res, err := Select(f, "alias.example.com", dnswire.TypeA, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) == 0 || res.Answers[0].Type != uint16(dnswire.TypeCNAME) {
		t.Fatalf("expected CNAME to win over coexisting A row, got %+v", res.Answers)
	}
}

func TestSelectANYAggregatesTypes(t *testing.T) {
	f := newFakeStore()
	f.add("www.example.com", "A", store.Record{ID: 1, Value: "192.0.2.1", Healthy: true, Weight: 1})
	f.add("www.example.com", "TXT", store.Record{ID: 2, Value: "hello"})

	res, err := Select(f, "www.example.com", dnswire.TypeANY, netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Answers) != 2 {
		t.Fatalf("expected both A and TXT in ANY response, got %d", len(res.Answers))
	}
}

func TestSelectUnsupportedQTypeIsNotImplemented(t *testing.T) {
	f := newFakeStore()
	res, err := Select(f, "www.example.com", dnswire.RecordType(9999), netip.Addr{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.RCode != dnswire.RCodeNotImp {
		t.Errorf("RCode = %v, want NotImp", res.RCode)
	}
}

// TestWeightedPickConvergesToShare checks, via testing/quick, that across
// many draws weightedPick selects each candidate close to its share of
// the total weight — the property the spec documents for weighted splits.
func TestWeightedPickConvergesToShare(t *testing.T) {
	check := func(wA, wB uint8) bool {
		weightA := int(wA%50) + 1
		weightB := int(wB%50) + 1
		candidates := []store.Record{
			{ID: 1, Value: "192.0.2.1", Weight: weightA},
			{ID: 2, Value: "192.0.2.2", Weight: weightB},
		}
		const draws = 20000
		countA := 0
		for i := 0; i < draws; i++ {
			if weightedPick(candidates).ID == 1 {
				countA++
			}
		}
		wantShare := float64(weightA) / float64(weightA+weightB)
		gotShare := float64(countA) / float64(draws)
		const tolerance = 0.03
		diff := gotShare - wantShare
		if diff < 0 {
			diff = -diff
		}
		return diff < tolerance
	}
	if err := quick.Check(check, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}
