package store

import (
	"database/sql"
	"fmt"
)

// CreateZone inserts a new authoritative zone.
func (s *Store) CreateZone(z Zone) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(`
		INSERT INTO zones (name, soa_mname, soa_rname, soa_serial, soa_refresh, soa_retry, soa_expire, soa_minimum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, z.Name, z.SOAMName, z.SOARName, z.SOASerial, z.SOARefresh, z.SOARetry, z.SOAExpire, z.SOAMinimum)
	if err != nil {
		return 0, fmt.Errorf("create zone %s: %w", z.Name, err)
	}
	return res.LastInsertId()
}

// GetZone fetches a zone by exact name.
func (s *Store) GetZone(name string) (Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var z Zone
	err := s.conn.QueryRow(`
		SELECT id, name, soa_mname, soa_rname, soa_serial, soa_refresh, soa_retry, soa_expire, soa_minimum
		FROM zones WHERE name = ?
	`, name).Scan(&z.ID, &z.Name, &z.SOAMName, &z.SOARName, &z.SOASerial, &z.SOARefresh, &z.SOARetry, &z.SOAExpire, &z.SOAMinimum)
	if err == sql.ErrNoRows {
		return Zone{}, fmt.Errorf("zone not found: %s", name)
	}
	if err != nil {
		return Zone{}, fmt.Errorf("get zone %s: %w", name, err)
	}
	return z, nil
}

// ListZones returns every zone, ordered by name.
func (s *Store) ListZones() ([]Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, name, soa_mname, soa_rname, soa_serial, soa_refresh, soa_retry, soa_expire, soa_minimum
		FROM zones ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.SOAMName, &z.SOARName, &z.SOASerial, &z.SOARefresh, &z.SOARetry, &z.SOAExpire, &z.SOAMinimum); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// DeleteZone removes a zone and, via ON DELETE CASCADE, its records.
func (s *Store) DeleteZone(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec("DELETE FROM zones WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete zone %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delete zone %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("zone not found: %s", name)
	}
	return nil
}

// BumpSerial increments a zone's SOA serial outside any transaction. The
// store's own record mutations bump the serial inside their write
// transaction through bumpSerialTx instead.
func (s *Store) BumpSerial(zoneID int64) error {
	_, err := s.conn.Exec("UPDATE zones SET soa_serial = soa_serial + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", zoneID)
	if err != nil {
		return fmt.Errorf("bump serial for zone %d: %w", zoneID, err)
	}
	return nil
}
