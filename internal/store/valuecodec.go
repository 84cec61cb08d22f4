package store

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/authdns/authdns/internal/dnswire"
)

// DecodeValue turns a record's textual value grammar into the typed form
// internal/dnswire expects for Record.Data.
func DecodeValue(recordType, value string) (any, error) {
	return decodeValue(recordType, value)
}

func decodeValue(recordType, value string) (any, error) {
	switch strings.ToUpper(recordType) {
	case "A":
		addr, err := netip.ParseAddr(strings.TrimSpace(value))
		if err != nil || !addr.Is4() {
			return nil, fmt.Errorf("invalid A value %q", value)
		}
		b := addr.As4()
		return b[:], nil
	case "AAAA":
		addr, err := netip.ParseAddr(strings.TrimSpace(value))
		if err != nil || !addr.Is6() {
			return nil, fmt.Errorf("invalid AAAA value %q", value)
		}
		b := addr.As16()
		return b[:], nil
	case "CNAME", "NS", "PTR":
		target := strings.TrimSpace(value)
		if target == "" {
			return nil, fmt.Errorf("%s value must be a non-empty name", recordType)
		}
		return target, nil
	case "MX":
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return nil, fmt.Errorf("MX value must be: <preference> <exchange>")
		}
		pref, err := strconv.Atoi(parts[0])
		if err != nil || pref < 0 || pref > 65535 {
			return nil, fmt.Errorf("MX preference must be 0..65535")
		}
		return dnswire.MXData{Preference: uint16(pref), Exchange: parts[1]}, nil
	case "TXT":
		return value, nil
	case "SRV":
		parts := strings.Fields(value)
		if len(parts) != 4 {
			return nil, fmt.Errorf("SRV value must be: <priority> <weight> <port> <target>")
		}
		prio, err := parseUint16Field(parts[0], "SRV priority")
		if err != nil {
			return nil, err
		}
		weight, err := parseUint16Field(parts[1], "SRV weight")
		if err != nil {
			return nil, err
		}
		port, err := parseUint16Field(parts[2], "SRV port")
		if err != nil {
			return nil, err
		}
		return dnswire.SRVData{Priority: prio, Weight: weight, Port: port, Target: parts[3]}, nil
	case "CAA":
		parts := strings.SplitN(value, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("CAA value must be: <flags> <tag> <value>")
		}
		flags, err := strconv.Atoi(parts[0])
		if err != nil || flags < 0 || flags > 255 {
			return nil, fmt.Errorf("CAA flags must be 0..255")
		}
		return dnswire.CAAData{Flags: uint8(flags), Tag: parts[1], Value: parts[2]}, nil
	default:
		return nil, fmt.Errorf("unsupported record type %q", recordType)
	}
}

func parseUint16Field(s, label string) (uint16, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 65535 {
		return 0, fmt.Errorf("%s must be 0..65535", label)
	}
	return uint16(v), nil
}

// WireType maps a textual record type name to its RFC 1035 RecordType code.
func WireType(recordType string) (dnswire.RecordType, bool) {
	switch strings.ToUpper(recordType) {
	case "A":
		return dnswire.TypeA, true
	case "AAAA":
		return dnswire.TypeAAAA, true
	case "CNAME":
		return dnswire.TypeCNAME, true
	case "NS":
		return dnswire.TypeNS, true
	case "PTR":
		return dnswire.TypePTR, true
	case "MX":
		return dnswire.TypeMX, true
	case "TXT":
		return dnswire.TypeTXT, true
	case "SRV":
		return dnswire.TypeSRV, true
	case "CAA":
		return dnswire.TypeCAA, true
	default:
		return 0, false
	}
}

// validateValue checks that value parses under recordType's grammar without
// producing the decoded form. Used at ingest time before a row is written.
func validateValue(recordType, value string) error {
	_, err := decodeValue(recordType, value)
	return err
}
