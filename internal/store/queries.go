package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const lookupByNameQuery = `
	SELECT id, zone_id, name, type, value, ttl, weight,
	       COALESCE(geo_cidr, ''), healthy, COALESCE(health_url, ''), enabled
	FROM records
	WHERE zone_id = ? AND name = ?
	ORDER BY (type != 'CNAME'), id ASC
`

const resolveZoneQuery = `
	SELECT id, name, soa_mname, soa_rname, soa_serial, soa_refresh, soa_retry, soa_expire, soa_minimum
	FROM zones
	WHERE name = ?
`

const authorityQuery = `
	SELECT id, zone_id, name, type, value, ttl, weight,
	       COALESCE(geo_cidr, ''), healthy, COALESCE(health_url, ''), enabled
	FROM records
	WHERE zone_id = ? AND type = 'NS'
	ORDER BY id ASC
`

const healthTargetsQuery = `
	SELECT id, health_url FROM records WHERE health_url IS NOT NULL AND enabled = 1
`

const updateHealthQuery = `
	UPDATE records SET healthy = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

// LookupByName returns every record in zoneID owned by name, across all
// types, with any CNAME rows sorted first so callers can apply CNAME
// priority without a second round-trip.
func (s *Store) LookupByName(zoneID int64, name string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.stmtLookupByName.Query(zoneID, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ResolveZone walks qname's labels from most to least specific and returns
// the longest zone whose name is an exact, label-boundary match. This is
// not a LIKE-based suffix scan: "notexample.com" never resolves to zone "example.com".
func (s *Store) ResolveZone(qname string) (Zone, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, candidate := range zoneCandidates(qname) {
		var z Zone
		err := s.stmtResolveZone.QueryRow(candidate).Scan(
			&z.ID, &z.Name, &z.SOAMName, &z.SOARName,
			&z.SOASerial, &z.SOARefresh, &z.SOARetry, &z.SOAExpire, &z.SOAMinimum,
		)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return Zone{}, false, fmt.Errorf("resolve zone for %s: %w", qname, err)
		}
		return z, true, nil
	}
	return Zone{}, false, nil
}

// zoneCandidates returns qname and each of its parent domains, most to
// least specific, splitting strictly on label boundaries.
func zoneCandidates(qname string) []string {
	name := strings.TrimSuffix(qname, ".")
	if name == "" {
		return nil
	}
	labels := strings.Split(name, ".")
	candidates := make([]string, 0, len(labels))
	for i := range labels {
		candidates = append(candidates, strings.Join(labels[i:], "."))
	}
	return candidates
}

// Authority returns the NS records for a zone, for the authority section
// of a response.
func (s *Store) Authority(zoneID int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.stmtAuthority.Query(zoneID)
	if err != nil {
		return nil, fmt.Errorf("authority for zone %d: %w", zoneID, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// HealthTargets returns every enabled record that carries a health_url, for the
// background health checker to probe.
func (s *Store) HealthTargets() ([]HealthTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.stmtHealthTargets.Query()
	if err != nil {
		return nil, fmt.Errorf("health targets: %w", err)
	}
	defer rows.Close()

	var out []HealthTarget
	for rows.Next() {
		var t HealthTarget
		if err := rows.Scan(&t.RecordID, &t.HealthURL); err != nil {
			return nil, fmt.Errorf("scan health target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateHealth writes the latest health-check result for a record.
func (s *Store) UpdateHealth(recordID int64, healthy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.stmtUpdateHealth.Exec(boolToInt(healthy), recordID)
	if err != nil {
		return fmt.Errorf("update health for record %d: %w", recordID, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		var healthy, enabled int
		if err := rows.Scan(&r.ID, &r.ZoneID, &r.Name, &r.Type, &r.Value, &r.TTL,
			&r.Weight, &r.GeoCIDR, &healthy, &r.HealthURL, &enabled); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Healthy = healthy != 0
		r.Enabled = enabled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
