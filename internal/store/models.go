package store

import "time"

// Zone is an authoritative zone and its SOA parameters.
type Zone struct {
	ID         int64
	Name       string
	SOAMName   string
	SOARName   string
	SOASerial  uint32
	SOARefresh uint32
	SOARetry   uint32
	SOAExpire  uint32
	SOAMinimum uint32
}

// Record is a single resource record row, still in textual value form.
type Record struct {
	ID        int64
	ZoneID    int64
	Name      string
	Type      string
	Value     string
	TTL       uint32
	Weight    int
	GeoCIDR   string // empty means "applies everywhere"
	Healthy   bool
	HealthURL string // empty means "not health-checked"
	Enabled   bool   // disabled rows are invisible to resolution
}

// HealthTarget is a row returned by the health-targets query: enough to
// drive an HTTP probe and write the result back.
type HealthTarget struct {
	RecordID  int64
	HealthURL string
}

// DDNSCredential is a token-auth binding for a single FQDN's A-record.
type DDNSCredential struct {
	ID        int64
	FQDN      string
	TokenHash string
	UserID    int64 // 0 means unset; no users table exists yet
	ZoneID    int64 // 0 means unresolved at provisioning time
	TTL       uint32
	Enabled   bool
	CreatedAt time.Time
}
