package dnswire

import "testing"

func buildQuery(t *testing.T, flags uint16, qdcount uint16) []byte {
	t.Helper()
	h := Header{ID: 7, Flags: flags, QDCount: qdcount}
	b, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal header: %v", err)
	}
	for range qdcount {
		q := Question{Name: "example.com", Type: uint16(TypeA), Class: uint16(ClassIN)}
		qb, err := q.Marshal()
		if err != nil {
			t.Fatalf("Marshal question: %v", err)
		}
		b = append(b, qb...)
	}
	return b
}

func TestParseRequestBoundedAcceptsStandardQuery(t *testing.T) {
	msg := buildQuery(t, RDFlag, 1)
	p, err := ParseRequestBounded(msg)
	if err != nil {
		t.Fatalf("ParseRequestBounded: %v", err)
	}
	if len(p.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(p.Questions))
	}
}

func TestParseRequestBoundedRejectsResponse(t *testing.T) {
	msg := buildQuery(t, QRFlag, 1)
	if _, err := ParseRequestBounded(msg); err == nil {
		t.Fatal("expected error for response packet (QR set)")
	}
}

func TestParseRequestBoundedRejectsNonZeroOpcode(t *testing.T) {
	msg := buildQuery(t, 1<<11, 1) // opcode = 1 (IQUERY)
	if _, err := ParseRequestBounded(msg); err == nil {
		t.Fatal("expected error for non-zero opcode")
	}
}

func TestParseRequestBoundedRejectsMultipleQuestions(t *testing.T) {
	msg := buildQuery(t, 0, 2)
	if _, err := ParseRequestBounded(msg); err == nil {
		t.Fatal("expected error for question count != 1")
	}
}

func TestParseRequestBoundedRejectsOversizedMessage(t *testing.T) {
	msg := make([]byte, MaxIncomingDNSMessageSize+1)
	if _, err := ParseRequestBounded(msg); err == nil {
		t.Fatal("expected error for oversized message")
	}
}

func TestBuildErrorResponsePreservesIDAndQuestion(t *testing.T) {
	req := Packet{
		Header:    Header{ID: 99, Flags: RDFlag, QDCount: 1},
		Questions: []Question{{Name: "example.com", Type: uint16(TypeA), Class: uint16(ClassIN)}},
	}
	resp := BuildErrorResponse(req, uint16(RCodeNXDomain))
	if resp.Header.ID != 99 {
		t.Errorf("ID = %d, want 99", resp.Header.ID)
	}
	if !isResponse(resp.Header.Flags) {
		t.Error("expected QR flag set on error response")
	}
	if resp.Header.Flags&RDFlag == 0 {
		t.Error("expected RD flag preserved")
	}
	if RCodeFromFlags(resp.Header.Flags) != RCodeNXDomain {
		t.Errorf("rcode = %d, want %d", RCodeFromFlags(resp.Header.Flags), RCodeNXDomain)
	}
	if len(resp.Questions) != 1 || resp.Header.ANCount != 0 {
		t.Errorf("unexpected response shape: %+v", resp)
	}
}
