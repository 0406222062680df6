package dissect

// DisplayFilter selects the frames the trace engine cares about.
const DisplayFilter = "http.request or http.response"

// Field positions in the fixed row schema. The decoder indexes rows by these
// constants; the runner requests the fields in exactly this order.
const (
	fieldTimeEpoch = iota
	fieldTCPStream
	fieldIPSrc
	fieldSrcPort
	fieldIPDst
	fieldDstPort

	fieldReqMethod
	fieldReqURI
	fieldReqVersion
	fieldHost
	fieldReqLines

	fieldRespCode
	fieldRespPhrase
	fieldRespVersion
	fieldRespLines

	fieldContentType
	fieldContentLength
	fieldContentEncoding
	fieldFileData

	fieldCount
)

// Fields lists the tshark field names in schema order.
var Fields = []string{
	"frame.time_epoch",
	"tcp.stream",
	"ip.src",
	"tcp.srcport",
	"ip.dst",
	"tcp.dstport",

	"http.request.method",
	"http.request.uri",
	"http.request.version",
	"http.host",
	"http.request.line",

	"http.response.code",
	"http.response.phrase",
	"http.response.version",
	"http.response.line",

	"http.content_type",
	"http.content_length",
	"http.content_encoding",

	"http.file_data",
}
