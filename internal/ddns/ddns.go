// Package ddns implements the dynamic-DNS update path: a caller presents a
// shared token for a specific FQDN, the token is checked against its
// stored hash, and on success the FQDN's A-record is replaced with the
// caller's resolved IP.
package ddns

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/authdns/authdns/internal/store"
)

// cacheClearer is the subset of *cache.Cache[V] the updater needs: wiping
// the lookup cache after a successful write. An interface rather than a
// concrete generic instantiation, since the server wires a
// cache.Cache[[]store.Record] here and that type must stay unparameterized
// at this layer.
type cacheClearer interface {
	Clear()
}

// ErrUnknownFQDN is returned when no DDNS credential is bound to the
// requested FQDN.
var ErrUnknownFQDN = errors.New("no ddns credential for fqdn")

// ErrBadToken is returned when the presented token does not match the
// stored hash for the FQDN's credential.
var ErrBadToken = errors.New("invalid ddns token")

// ErrNotInZone is returned when the FQDN does not fall within any
// configured zone.
var ErrNotInZone = errors.New("fqdn is not within a configured zone")

// ErrCredentialDisabled is returned when the FQDN's credential exists but
// has been administratively disabled.
var ErrCredentialDisabled = errors.New("ddns credential is disabled")

// Updater applies DDNS updates against the record store.
type Updater struct {
	store *store.Store
	cache cacheClearer
}

// New builds an Updater.
func New(st *store.Store, c cacheClearer) *Updater {
	return &Updater{store: st, cache: c}
}

// Outcome describes the result of a successful update.
type Outcome struct {
	FQDN    string
	IP      string
	Changed bool
}

// Apply verifies token against fqdn's stored credential and, if it
// matches, replaces fqdn's A-record with ip. sourceAddr is recorded in the
// audit trail.
func (u *Updater) Apply(fqdn, token, ip, sourceAddr string) (Outcome, error) {
	fqdn = strings.TrimSuffix(fqdn, ".")

	cred, ok, err := u.store.CredentialForFQDN(fqdn)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, ErrUnknownFQDN
	}
	if hashToken(token) != cred.TokenHash {
		return Outcome{}, ErrBadToken
	}
	if !cred.Enabled {
		return Outcome{}, ErrCredentialDisabled
	}

	zone, ok, err := u.store.ResolveZone(fqdn)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, ErrNotInZone
	}

	changed, err := u.store.ApplyDDNSUpdate(zone.ID, fqdn, ip, sourceAddr, cred.TTL)
	if err != nil {
		return Outcome{}, err
	}
	u.cache.Clear()

	return Outcome{FQDN: fqdn, IP: ip, Changed: changed}, nil
}

// HashToken returns the stored form of a raw DDNS token: a hex-encoded
// SHA-256 digest. Credential provisioning (outside this package's scope,
// see internal/controlplane) stores exactly this value.
func HashToken(token string) string {
	return hashToken(token)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ResolveClientIP extracts the caller's address for a DDNS update: an
// explicit ip argument wins if present, otherwise the first hop recorded
// in X-Forwarded-For, otherwise X-Real-IP, otherwise the request's
// socket-level RemoteAddr.
func ResolveClientIP(r *http.Request, explicitIP string) string {
	if explicitIP != "" {
		return explicitIP
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
