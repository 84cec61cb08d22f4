package store

import (
	"database/sql"
	"fmt"
)

// CreateDDNSCredential binds c.FQDN to its token hash, replacing any
// existing binding for that FQDN. TokenHash is expected to already be
// hashed (see internal/ddns.HashToken); the store never sees the raw
// token. A zero TTL defaults to 60; ZoneID and UserID of 0 are stored as
// NULL since neither is required at provisioning time.
func (s *Store) CreateDDNSCredential(c DDNSCredential) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := c.TTL
	if ttl == 0 {
		ttl = 60
	}

	res, err := s.conn.Exec(`
		INSERT INTO ddns_credentials (fqdn, token_hash, user_id, zone_id, ttl, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fqdn) DO UPDATE SET
			token_hash = excluded.token_hash,
			user_id = excluded.user_id,
			zone_id = excluded.zone_id,
			ttl = excluded.ttl,
			enabled = excluded.enabled
	`, c.FQDN, c.TokenHash, nullableID(c.UserID), nullableID(c.ZoneID), ttl, boolToInt(c.Enabled))
	if err != nil {
		return 0, fmt.Errorf("create ddns credential for %s: %w", c.FQDN, err)
	}
	return res.LastInsertId()
}

// CredentialForFQDN returns the DDNS credential bound to fqdn, if any.
func (s *Store) CredentialForFQDN(fqdn string) (DDNSCredential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c DDNSCredential
	var userID, zoneID sql.NullInt64
	var enabled int
	err := s.conn.QueryRow(`
		SELECT id, fqdn, token_hash, user_id, zone_id, ttl, enabled, created_at FROM ddns_credentials WHERE fqdn = ?
	`, fqdn).Scan(&c.ID, &c.FQDN, &c.TokenHash, &userID, &zoneID, &c.TTL, &enabled, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return DDNSCredential{}, false, nil
	}
	if err != nil {
		return DDNSCredential{}, false, fmt.Errorf("lookup ddns credential for %s: %w", fqdn, err)
	}
	c.UserID = userID.Int64
	c.ZoneID = zoneID.Int64
	c.Enabled = enabled != 0
	return c, true, nil
}

// nullableID converts the store's "0 means unset" convention into a SQL
// NULL for optional foreign-key-shaped columns.
func nullableID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// ApplyDDNSUpdate atomically replaces every A-row fqdn has in zoneID with
// a single new A-row at ip and ttl and bumps the zone's SOA serial, unless
// the stored set already equals {ip}, in which case neither happens; an
// audit row is recorded either way. changed reports whether the stored set
// differed from {ip}. A zero ttl falls back to 60. A name that already has
// a CNAME is rejected with ErrConflictingCNAME.
func (s *Store) ApplyDDNSUpdate(zoneID int64, fqdn, ip, sourceAddr string, ttl uint32) (changed bool, err error) {
	if verr := validateValue("A", ip); verr != nil {
		return false, fmt.Errorf("invalid ddns ip %q: %w", ip, verr)
	}
	if ttl == 0 {
		ttl = 60
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("begin ddns update: %w", err)
	}
	defer tx.Rollback()

	var existing []string
	rows, err := tx.Query("SELECT value FROM records WHERE zone_id = ? AND name = ? AND type = 'A'", zoneID, fqdn)
	if err != nil {
		return false, fmt.Errorf("read existing ddns A records for %s: %w", fqdn, err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan existing ddns A record for %s: %w", fqdn, err)
		}
		existing = append(existing, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, err
	}
	rows.Close()

	changed = len(existing) != 1 || existing[0] != ip

	if changed {
		if err := checkCNAMEExclusivity(tx, zoneID, fqdn, "A"); err != nil {
			return false, err
		}
		if _, err := tx.Exec("DELETE FROM records WHERE zone_id = ? AND name = ? AND type = 'A'", zoneID, fqdn); err != nil {
			return false, fmt.Errorf("delete existing ddns A records for %s: %w", fqdn, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO records (zone_id, name, type, value, ttl, weight, enabled)
			VALUES (?, ?, 'A', ?, ?, 100, 1)
		`, zoneID, fqdn, ip, ttl); err != nil {
			return false, fmt.Errorf("insert ddns A record for %s: %w", fqdn, err)
		}
		if err := bumpSerialTx(tx, zoneID); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO ddns_audit (fqdn, ip, changed, source_addr) VALUES (?, ?, ?, ?)
	`, fqdn, ip, boolToInt(changed), sourceAddr); err != nil {
		return false, fmt.Errorf("write ddns audit for %s: %w", fqdn, err)
	}

	return changed, tx.Commit()
}
