package protocol

// Version is the only FastCGI protocol version this package speaks.
const Version = 1

// RecordType enumerates the FastCGI record types (§3).
type RecordType uint8

const (
	TypeBeginRequest   RecordType = 1
	TypeAbortRequest   RecordType = 2
	TypeEndRequest     RecordType = 3
	TypeParams         RecordType = 4
	TypeStdin          RecordType = 5
	TypeStdout         RecordType = 6
	TypeStderr         RecordType = 7
	TypeData           RecordType = 8
	TypeGetValues      RecordType = 9
	TypeGetValuesResult RecordType = 10
	TypeUnknownType    RecordType = 11
)

func (t RecordType) String() string {
	switch t {
	case TypeBeginRequest:
		return "begin_request"
	case TypeAbortRequest:
		return "abort_request"
	case TypeEndRequest:
		return "end_request"
	case TypeParams:
		return "params"
	case TypeStdin:
		return "stdin"
	case TypeStdout:
		return "stdout"
	case TypeStderr:
		return "stderr"
	case TypeData:
		return "data"
	case TypeGetValues:
		return "get_values"
	case TypeGetValuesResult:
		return "get_values_result"
	case TypeUnknownType:
		return "unknown_type"
	default:
		return "unknown"
	}
}

// StreamType identifies one of the five record types that carry a byte
// stream rather than a fixed-layout body. Its values double as the
// corresponding RecordType values (§3).
type StreamType uint8

const (
	StreamParams StreamType = StreamType(TypeParams)
	StreamStdin  StreamType = StreamType(TypeStdin)
	StreamStdout StreamType = StreamType(TypeStdout)
	StreamStderr StreamType = StreamType(TypeStderr)
	StreamData   StreamType = StreamType(TypeData)
)

func (s StreamType) String() string { return RecordType(s).String() }

// Role enumerates the application roles a request can target (§3).
type Role uint16

const (
	RoleResponder  Role = 1
	RoleAuthorizer Role = 2
	RoleFilter     Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "responder"
	case RoleAuthorizer:
		return "authorizer"
	case RoleFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the three roles defined by the
// protocol.
func (r Role) Valid() bool {
	switch r {
	case RoleResponder, RoleAuthorizer, RoleFilter:
		return true
	default:
		return false
	}
}

// ProtocolStatus enumerates the end_request status codes (§3).
type ProtocolStatus uint8

const (
	StatusRequestComplete ProtocolStatus = 0
	StatusCantMpxConn     ProtocolStatus = 1
	StatusOverloaded      ProtocolStatus = 2
	StatusUnknownRole     ProtocolStatus = 3
)

// NullRequestID marks a management record: one not associated with any
// request.
const NullRequestID uint16 = 0

// IsManagementRecord reports whether requestID denotes a management
// record.
func IsManagementRecord(requestID uint16) bool { return requestID == NullRequestID }

const (
	// MaxContentLength is the largest content_length a single record may carry.
	MaxContentLength = 65535
	// MaxPaddingLength is the largest padding_length a single record may carry.
	MaxPaddingLength = 255
)

// BeginRequestFlags are the bit flags carried in a begin-request body.
type BeginRequestFlags uint8

// FlagKeepConn requests that the connection survive past this request's
// end_request record. Parsed and surfaced (Connection.KeepConn) but not
// honored: Connection.Close always tears down the transport (spec.md §9
// names this a future extension).
const FlagKeepConn BeginRequestFlags = 1
