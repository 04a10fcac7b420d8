package format

// QueryResponseType identifies the vantage point that captured a
// QueryResponse (format_specification.h's QueryResponseTypeValues).
type QueryResponseType uint8

const (
	QRTypeStub      QueryResponseType = 0
	QRTypeClient    QueryResponseType = 1
	QRTypeResolver  QueryResponseType = 2
	QRTypeAuth      QueryResponseType = 3
	QRTypeForwarder QueryResponseType = 4
	QRTypeTool      QueryResponseType = 5
)

func (t QueryResponseType) String() string {
	switch t {
	case QRTypeStub:
		return "stub"
	case QRTypeClient:
		return "client"
	case QRTypeResolver:
		return "resolver"
	case QRTypeAuth:
		return "auth"
	case QRTypeForwarder:
		return "forwarder"
	case QRTypeTool:
		return "tool"
	default:
		return "unknown"
	}
}

// AddressEventType enumerates the kinds of network-level events a server
// observed about a client address (format_specification.h's
// AddressEventTypeValues).
type AddressEventType uint8

const (
	AETypeTCPReset               AddressEventType = 0
	AETypeICMPTimeExceeded       AddressEventType = 1
	AETypeICMPDestUnreachable    AddressEventType = 2
	AETypeICMPv6TimeExceeded     AddressEventType = 3
	AETypeICMPv6DestUnreachable  AddressEventType = 4
	AETypeICMPv6PacketTooBig     AddressEventType = 5
)

func (t AddressEventType) String() string {
	switch t {
	case AETypeTCPReset:
		return "tcp-reset"
	case AETypeICMPTimeExceeded:
		return "icmp-time-exceeded"
	case AETypeICMPDestUnreachable:
		return "icmp-dest-unreachable"
	case AETypeICMPv6TimeExceeded:
		return "icmpv6-time-exceeded"
	case AETypeICMPv6DestUnreachable:
		return "icmpv6-dest-unreachable"
	case AETypeICMPv6PacketTooBig:
		return "icmpv6-packet-too-big"
	default:
		return "unknown"
	}
}
