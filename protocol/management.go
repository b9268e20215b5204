package protocol

import (
	"fmt"
	"io"
)

// managementVariables are the get_values variables this implementation
// answers, with their fixed string values (§4.3.4).
var managementVariables = []struct {
	Name  string
	Value string
}{
	{"FCGI_MAX_CONNS", "1"},
	{"FCGI_MAX_REQS", "1"},
	{"FCGI_MPXS_CONNS", "0"},
}

// GetValuesResponse returns, in query order, the (name, value) pairs for
// the subset of queried variable names this implementation knows about.
// Unknown names are silently omitted.
func GetValuesResponse(query []Pair) []Pair {
	var out []Pair
	for _, q := range query {
		for _, kv := range managementVariables {
			if string(q.Name) == kv.Name {
				out = append(out, Pair{Name: []byte(kv.Name), Value: []byte(kv.Value)})
				break
			}
		}
	}
	return out
}

// EncodeGetValuesResultBody encodes pairs as the body of a
// get_values_result record.
func EncodeGetValuesResultBody(pairs []Pair) ([]byte, error) {
	var body []byte
	for _, p := range pairs {
		if len(p.Name) > 255 {
			return nil, NewProtocolError("encode get_values_result", fmt.Errorf("variable name %q exceeds 255 bytes", p.Name))
		}
		body = WritePair(body, p.Name, p.Value)
	}
	if len(body) > MaxContentLength {
		return nil, NewProtocolError("encode get_values_result", fmt.Errorf("body too large: %d bytes", len(body)))
	}
	return body, nil
}

// WriteGetValuesResultRecord writes a full get_values_result record
// (header, body, padding) to w in a single write.
func WriteGetValuesResultRecord(w io.Writer, pairs []Pair) error {
	body, err := EncodeGetValuesResultBody(pairs)
	if err != nil {
		return err
	}
	pad := Pad(len(body))
	buf := make([]byte, 0, HeaderSize+len(body)+int(pad))
	var hdr [HeaderSize]byte
	EncodeHeader(hdr[:], TypeGetValuesResult, NullRequestID, len(body), pad)
	buf = append(buf, hdr[:]...)
	buf = append(buf, body...)
	buf = append(buf, make([]byte, pad)...)
	if _, err := w.Write(buf); err != nil {
		return NewTransportError("write get_values_result", err)
	}
	return nil
}
