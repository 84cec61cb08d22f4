package store

import (
	"database/sql"
	"fmt"
)

// ErrConflictingCNAME is returned when a write would leave a name with both
// a CNAME and some other record type, which RFC 1035 forbids at ingest
// time (query-time resolution still prefers an existing CNAME over stale
// siblings, see internal/selector).
var ErrConflictingCNAME = fmt.Errorf("name already has a conflicting record type")

// CreateRecord inserts a record after checking the CNAME/other-type
// exclusivity invariant for its owner name.
func (s *Store) CreateRecord(r Record) (int64, error) {
	if err := validateValue(r.Type, r.Value); err != nil {
		return 0, fmt.Errorf("invalid value for %s record: %w", r.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin create record: %w", err)
	}
	defer tx.Rollback()

	if err := checkCNAMEExclusivity(tx, r.ZoneID, r.Name, r.Type); err != nil {
		return 0, err
	}

	res, err := tx.Exec(`
		INSERT INTO records (zone_id, name, type, value, ttl, weight, geo_cidr, health_url, enabled)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)
	`, r.ZoneID, r.Name, r.Type, r.Value, r.TTL, r.Weight, r.GeoCIDR, r.HealthURL, boolToInt(r.Enabled))
	if err != nil {
		return 0, fmt.Errorf("insert record %s/%s: %w", r.Name, r.Type, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for %s/%s: %w", r.Name, r.Type, err)
	}
	if err := bumpSerialTx(tx, r.ZoneID); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// checkCNAMEExclusivity enforces that a name either has exactly one CNAME
// record and nothing else, or has no CNAME record at all.
func checkCNAMEExclusivity(tx *sql.Tx, zoneID int64, name, newType string) error {
	var existingTypes []string
	rows, err := tx.Query("SELECT DISTINCT type FROM records WHERE zone_id = ? AND name = ?", zoneID, name)
	if err != nil {
		return fmt.Errorf("check cname exclusivity for %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("scan existing type for %s: %w", name, err)
		}
		existingTypes = append(existingTypes, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if newType == "CNAME" {
		if len(existingTypes) > 0 {
			return ErrConflictingCNAME
		}
		return nil
	}
	for _, t := range existingTypes {
		if t == "CNAME" {
			return ErrConflictingCNAME
		}
	}
	return nil
}

// DeleteRecord removes a record by id.
func (s *Store) DeleteRecord(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete record: %w", err)
	}
	defer tx.Rollback()

	var zoneID int64
	if err := tx.QueryRow("SELECT zone_id FROM records WHERE id = ?", id).Scan(&zoneID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("record not found: %d", id)
		}
		return fmt.Errorf("lookup zone for record %d: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if err := bumpSerialTx(tx, zoneID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListRecords returns every record owned by a zone.
func (s *Store) ListRecords(zoneID int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, zone_id, name, type, value, ttl, weight,
		       COALESCE(geo_cidr, ''), healthy, COALESCE(health_url, ''), enabled
		FROM records WHERE zone_id = ? ORDER BY name, type, id
	`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list records for zone %d: %w", zoneID, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func bumpSerialTx(tx *sql.Tx, zoneID int64) error {
	_, err := tx.Exec("UPDATE zones SET soa_serial = soa_serial + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", zoneID)
	if err != nil {
		return fmt.Errorf("bump serial for zone %d: %w", zoneID, err)
	}
	return nil
}
