package format

// Integer keys used by every CBOR map in the C-DNS wire format (spec.md §6),
// ported one for one from CZ-NIC/c-dns's format_specification.h enums.

// File preamble map keys.
const (
	KeyMajorVersion    = 0
	KeyMinorVersion    = 1
	KeyPrivateVersion  = 2
	KeyBlockParameters = 3
)

// BlockParameters map keys.
const (
	KeyStorageParameters    = 0
	KeyCollectionParameters = 1
)

// StorageParameters map keys.
const (
	KeyTicksPerSecond           = 0
	KeyMaxBlockItems            = 1
	KeyStorageHints             = 2
	KeyOpcodes                  = 3
	KeyRRTypes                  = 4
	KeyStorageFlags             = 5
	KeyClientAddressPrefixIPv4  = 6
	KeyClientAddressPrefixIPv6  = 7
	KeyServerAddressPrefixIPv4  = 8
	KeyServerAddressPrefixIPv6 = 9
	KeySamplingMethod           = 10
	KeyAnonymizationMethod      = 11
)

// CollectionParameters map keys. CollectionParameters is informational only
// (spec.md §3); this library round-trips it as an opaque set of optional
// fields without interpreting them.
const (
	KeyQueryTimeout   = 0
	KeySkewTimeout    = 1
	KeySnaplen        = 2
	KeyPromisc        = 3
	KeyInterfaces     = 4
	KeyServerAddress  = 5
	KeyVlanIDs        = 6
	KeyFilter         = 7
	KeyGeneratorID    = 8
	KeyHostID         = 9
)

// StorageHints map keys.
const (
	KeyQueryResponseHints          = 0
	KeyQueryResponseSignatureHints = 1
	KeyRRHints                     = 2
	KeyOtherDataHints              = 3
)

// Block map keys.
const (
	KeyBlockPreamble         = 0
	KeyBlockStatistics       = 1
	KeyBlockTables           = 2
	KeyQueryResponses        = 3
	KeyAddressEventCounts    = 4
	KeyMalformedMessages     = 5
)

// BlockPreamble map keys.
const (
	KeyEarliestTime         = 0
	KeyBlockParametersIndex = 1
)

// BlockStatistics map keys.
const (
	KeyProcessedMessages  = 0
	KeyQRDataItems        = 1
	KeyUnmatchedQueries   = 2
	KeyUnmatchedResponses = 3
	KeyDiscardedOpcode    = 4
	KeyMalformedItems     = 5
)

// BlockTables map keys.
const (
	KeyIPAddressTable            = 0
	KeyClassTypeTable            = 1
	KeyNameRdataTable            = 2
	KeyQRSigTable                = 3
	KeyQListTable                = 4
	KeyQRRTable                  = 5
	KeyRRListTable               = 6
	KeyRRTable                   = 7
	KeyMalformedMessageDataTable = 8
)

// ClassType map keys.
const (
	KeyClassTypeType  = 0
	KeyClassTypeClass = 1
)

// QueryResponseSignature map keys.
const (
	KeySigServerAddressIndex  = 0
	KeySigServerPort          = 1
	KeySigQRTransportFlags    = 2
	KeySigQRType              = 3
	KeySigQRSigFlags          = 4
	KeySigQueryOpcode         = 5
	KeySigQRDNSFlags          = 6
	KeySigQueryRcode          = 7
	KeySigQueryClasstypeIndex = 8
	KeySigQueryQDCount        = 9
	KeySigQueryANCount        = 10
	KeySigQueryNSCount        = 11
	KeySigQueryARCount        = 12
	KeySigQueryEDNSVersion    = 13
	KeySigQueryUDPSize        = 14
	KeySigQueryOptRdataIndex  = 15
	KeySigResponseRcode       = 16
)

// Question map keys.
const (
	KeyQuestionNameIndex      = 0
	KeyQuestionClasstypeIndex = 1
)

// RR map keys.
const (
	KeyRRNameIndex      = 0
	KeyRRClasstypeIndex = 1
	KeyRRTTL            = 2
	KeyRRRdataIndex     = 3
)

// MalformedMessageData map keys.
const (
	KeyMMDServerAddressIndex = 0
	KeyMMDServerPort         = 1
	KeyMMDTransportFlags     = 2
	KeyMMDPayload            = 3
)

// QueryResponse map keys. Three implementation-specific extensions occupy
// negative keys, per spec.md §6.
const (
	KeyQRTimeOffset              = 0
	KeyQRClientAddressIndex      = 1
	KeyQRClientPort              = 2
	KeyQRTransactionID           = 3
	KeyQRSignatureIndex          = 4
	KeyQRClientHoplimit          = 5
	KeyQRResponseDelay           = 6
	KeyQRQueryNameIndex          = 7
	KeyQRQuerySize               = 8
	KeyQRResponseSize            = 9
	KeyQRResponseProcessingData  = 10
	KeyQRQueryExtended           = 11
	KeyQRResponseExtended        = 12
	KeyQRASN                     = -1
	KeyQRCountryCode             = -2
	KeyQRRoundTripTime           = -3
)

// ResponseProcessingData map keys.
const (
	KeyRPDBailiwickIndex    = 0
	KeyRPDProcessingFlags   = 1
)

// QueryResponseExtended map keys.
const (
	KeyQRExtQuestionIndex   = 0
	KeyQRExtAnswerIndex     = 1
	KeyQRExtAuthorityIndex  = 2
	KeyQRExtAdditionalIndex = 3
)

// AddressEventCount map keys.
const (
	KeyAECType            = 0
	KeyAECCode            = 1
	KeyAECAddressIndex    = 2
	KeyAECTransportFlags  = 3
	KeyAECCount           = 4
)

// MalformedMessage map keys.
const (
	KeyMMTimeOffset         = 0
	KeyMMClientAddressIndex = 1
	KeyMMClientPort         = 2
	KeyMMMessageDataIndex   = 3
)
