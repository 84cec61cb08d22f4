package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetZone(t *testing.T) {
	st := newTestStore(t)

	id, err := st.CreateZone(Zone{
		Name: "example.com", SOAMName: "ns1.example.com", SOARName: "hostmaster.example.com",
		SOASerial: 1, SOARefresh: 3600, SOARetry: 600, SOAExpire: 604800, SOAMinimum: 60,
	})
	if err != nil {
		t.Fatalf("CreateZone: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero zone id")
	}

	z, err := st.GetZone("example.com")
	if err != nil {
		t.Fatalf("GetZone: %v", err)
	}
	if z.Name != "example.com" || z.SOASerial != 1 {
		t.Errorf("unexpected zone: %+v", z)
	}
}

func TestGetZoneNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetZone("nope.example.com"); err == nil {
		t.Fatal("expected error for missing zone")
	}
}

func TestCreateRecordBumpsSerial(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com", SOASerial: 1})
	z, _ := st.GetZone("example.com")

	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "www.example.com", Type: "A", Value: "192.0.2.1", TTL: 60, Weight: 1, Enabled: true}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	z2, _ := st.GetZone("example.com")
	if z2.SOASerial != 2 {
		t.Errorf("SOASerial = %d, want 2 after one mutation", z2.SOASerial)
	}
}

func TestCreateRecordRejectsCNAMEConflict(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")

	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "alias.example.com", Type: "CNAME", Value: "target.example.com", Enabled: true}); err != nil {
		t.Fatalf("create CNAME: %v", err)
	}
	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "alias.example.com", Type: "A", Value: "192.0.2.1", Weight: 1, Enabled: true}); err != ErrConflictingCNAME {
		t.Fatalf("expected ErrConflictingCNAME, got %v", err)
	}
}

func TestCreateRecordRejectsCNAMEWhenOtherExists(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")

	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "www.example.com", Type: "A", Value: "192.0.2.1", Weight: 1, Enabled: true}); err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "www.example.com", Type: "CNAME", Value: "other.example.com", Enabled: true}); err != ErrConflictingCNAME {
		t.Fatalf("expected ErrConflictingCNAME, got %v", err)
	}
}

func TestCreateRecordRejectsInvalidValue(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")

	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "www.example.com", Type: "A", Value: "not-an-ip"}); err == nil {
		t.Fatal("expected error for malformed A value")
	}
}

func TestDeleteRecordBumpsSerial(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")
	id, _ := st.CreateRecord(Record{ZoneID: z.ID, Name: "www.example.com", Type: "A", Value: "192.0.2.1", Weight: 1, Enabled: true})

	zBefore, _ := st.GetZone("example.com")
	if err := st.DeleteRecord(id); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	zAfter, _ := st.GetZone("example.com")
	if zAfter.SOASerial != zBefore.SOASerial+1 {
		t.Errorf("serial did not bump on delete: before=%d after=%d", zBefore.SOASerial, zAfter.SOASerial)
	}

	records, err := st.ListRecords(z.ID)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records after delete, got %d", len(records))
	}
}

func TestResolveZoneFindsSuffixMatch(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})

	z, ok, err := st.ResolveZone("www.example.com")
	if err != nil {
		t.Fatalf("ResolveZone: %v", err)
	}
	if !ok || z.Name != "example.com" {
		t.Fatalf("expected match on example.com, got %+v, %v", z, ok)
	}
}

func TestResolveZoneRespectsLabelBoundary(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})

	// notexample.com shares a byte suffix with example.com but not a label
	// boundary, and must not resolve to it.
	_, ok, err := st.ResolveZone("notexample.com")
	if err != nil {
		t.Fatalf("ResolveZone: %v", err)
	}
	if ok {
		t.Fatal("expected no zone match across a label boundary")
	}
}

func TestDDNSCredentialUpsert(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateDDNSCredential(DDNSCredential{FQDN: "host.example.com", TokenHash: "hash1", Enabled: true}); err != nil {
		t.Fatalf("CreateDDNSCredential: %v", err)
	}
	if _, err := st.CreateDDNSCredential(DDNSCredential{FQDN: "host.example.com", TokenHash: "hash2", Enabled: true}); err != nil {
		t.Fatalf("CreateDDNSCredential upsert: %v", err)
	}

	cred, ok, err := st.CredentialForFQDN("host.example.com")
	if err != nil {
		t.Fatalf("CredentialForFQDN: %v", err)
	}
	if !ok || cred.TokenHash != "hash2" {
		t.Fatalf("expected upserted hash2, got %+v, %v", cred, ok)
	}
	if cred.TTL != 60 {
		t.Errorf("expected default ttl=60, got %d", cred.TTL)
	}
}

func TestApplyDDNSUpdateInsertsThenUpdates(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")

	changed, err := st.ApplyDDNSUpdate(z.ID, "host.example.com", "203.0.113.1", "198.51.100.9", 60)
	if err != nil {
		t.Fatalf("ApplyDDNSUpdate (insert): %v", err)
	}
	if !changed {
		t.Error("expected changed=true on first insert")
	}

	changed, err = st.ApplyDDNSUpdate(z.ID, "host.example.com", "203.0.113.1", "198.51.100.9", 60)
	if err != nil {
		t.Fatalf("ApplyDDNSUpdate (no-op): %v", err)
	}
	if changed {
		t.Error("expected changed=false when ip is unchanged")
	}

	changed, err = st.ApplyDDNSUpdate(z.ID, "host.example.com", "203.0.113.2", "198.51.100.9", 60)
	if err != nil {
		t.Fatalf("ApplyDDNSUpdate (update): %v", err)
	}
	if !changed {
		t.Error("expected changed=true when ip differs")
	}
}

func TestApplyDDNSUpdateCollapsesMultipleARows(t *testing.T) {
	st := newTestStore(t)
	st.CreateZone(Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")

	// Simulate a pre-existing multi-row A set that predates DDNS binding.
	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "host.example.com", Type: "A", Value: "192.0.2.1", Weight: 100, Enabled: true}); err != nil {
		t.Fatalf("seed first A row: %v", err)
	}
	if _, err := st.CreateRecord(Record{ZoneID: z.ID, Name: "host.example.com", Type: "A", Value: "192.0.2.2", Weight: 100, Enabled: true}); err != nil {
		t.Fatalf("seed second A row: %v", err)
	}

	changed, err := st.ApplyDDNSUpdate(z.ID, "host.example.com", "203.0.113.9", "198.51.100.9", 120)
	if err != nil {
		t.Fatalf("ApplyDDNSUpdate: %v", err)
	}
	if !changed {
		t.Error("expected changed=true replacing a multi-row A set")
	}

	records, err := st.ListRecords(z.ID)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	var aRows []Record
	for _, r := range records {
		if r.Type == "A" {
			aRows = append(aRows, r)
		}
	}
	if len(aRows) != 1 || aRows[0].Value != "203.0.113.9" || aRows[0].TTL != 120 {
		t.Fatalf("expected exactly one A row at the new ip/ttl, got %+v", aRows)
	}
}
