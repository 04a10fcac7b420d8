package format

// StorageHints bitmasks (spec.md §3, §6): each bit gates inclusion of one
// optional field during block assembly and, symmetrically, tells the reader
// which fields a given file omitted. Ported from format_specification.h's
// QueryResponseHintsMask / QueryResponseSignatureHintsMask / RrHintsMask /
// OtherDataHintsMask enums.

// QueryResponseHints bits (18 total), gating fields of QueryResponse.
const (
	QRHintTimeOffset uint32 = 1 << iota
	QRHintClientAddressIndex
	QRHintClientPort
	QRHintTransactionID
	QRHintQRSignatureIndex
	QRHintClientHoplimit
	QRHintResponseDelay
	QRHintQueryNameIndex
	QRHintQuerySize
	QRHintResponseSize
	QRHintResponseProcessingData
	QRHintQueryQuestionSections
	QRHintQueryAnswerSections
	QRHintQueryAuthoritySections
	QRHintQueryAdditionalSections
	QRHintResponseAnswerSections
	QRHintResponseAuthoritySections
	QRHintResponseAdditionalSections
)

// QueryResponseSignatureHints bits (17 total), gating fields of
// QueryResponseSignature.
const (
	SigHintServerAddressIndex uint32 = 1 << iota
	SigHintServerPort
	SigHintQRTransportFlags
	SigHintQRType
	SigHintQRSigFlags
	SigHintQueryOpcode
	SigHintQRDNSFlags
	SigHintQueryRcode
	SigHintQueryClasstypeIndex
	SigHintQueryQDCount
	SigHintQueryANCount
	SigHintQueryNSCount
	SigHintQueryARCount
	SigHintQueryEDNSVersion
	SigHintQueryUDPSize
	SigHintQueryOptRdataIndex
	SigHintResponseRcode
)

// RrHints bits, gating fields of RR.
const (
	RRHintTTL uint8 = 1 << iota
	RRHintRdataIndex
)

// OtherDataHints bits, gating whether malformed-message and address-event
// tables/arrays are populated at all.
const (
	OtherDataHintMalformedMessages uint8 = 1 << iota
	OtherDataHintAddressEventCounts
)

// StorageFlags bits (spec.md §3): describe transformations already applied
// to the captured data, independent of StorageHints' per-field gating.
const (
	StorageFlagAnonymized uint8 = 1 << iota
	StorageFlagSampled
	StorageFlagNormalized
)

// QueryResponseTransportFlags bits: low bit selects IP version, next four
// bits select the transport, bit 5 flags trailing data on the query.
const (
	TransportFlagIPv4           uint8 = 0 // bit 0 clear: IPv4
	TransportFlagIPv6           uint8 = 1 << 0
	TransportUDP                uint8 = 0 << 1
	TransportTCP                uint8 = 1 << 1
	TransportTLS                uint8 = 2 << 1
	TransportDTLS               uint8 = 3 << 1
	TransportHTTPS              uint8 = 4 << 1
	TransportNonStandard        uint8 = 15 << 1
	TransportMask                     = 15 << 1
	TransportFlagQueryTrailing  uint8 = 1 << 5
)

// QueryResponseFlags bits.
const (
	QRFlagHasQuery uint8 = 1 << iota
	QRFlagHasResponse
	QRFlagQueryHasOpt
	QRFlagResponseHasOpt
	QRFlagQueryHasNoQuestion
	QRFlagResponseHasNoQuestion
)

// DNSFlags bits (16-bit field packing both query and response header flags).
const (
	DNSFlagQueryCD uint16 = 1 << iota
	DNSFlagQueryAD
	DNSFlagQueryZ
	DNSFlagQueryRA
	DNSFlagQueryRD
	DNSFlagQueryTC
	DNSFlagQueryAA
	DNSFlagQueryDO
	_ // reserved
	DNSFlagResponseCD
	DNSFlagResponseAD
	DNSFlagResponseZ
	DNSFlagResponseRA
	DNSFlagResponseRD
	DNSFlagResponseTC
	DNSFlagResponseAA
)

// ResponseProcessingFlags bits.
const (
	ResponseProcessingFlagFromCache uint8 = 1 << iota
)
