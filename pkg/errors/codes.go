package errors

import (
	"net/http"
	"strings"
)

// ErrorCode names a failure condition.  Values are wire-stable: they
// appear verbatim in API payloads and logs, so renumbering one is a
// breaking change.
type ErrorCode string

// String implements fmt.Stringer.
func (c ErrorCode) String() string { return string(c) }

// Sentinel codes used by GetCode.
const (
	ErrCodeOK      ErrorCode = "OK"
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
)

// Orthogroup table and lookups.
const (
	ErrCodeOrthogroupNotFound ErrorCode = "ORTH_001"
	ErrCodeGeneNotFound       ErrorCode = "ORTH_002"
	ErrCodeTableParseFailed   ErrorCode = "ORTH_003"
	ErrCodeTableEmpty         ErrorCode = "ORTH_004"
)

// Species mapping.
const (
	ErrCodeSpeciesMappingParseFailed ErrorCode = "SPC_001"
	ErrCodeSpeciesMappingEmpty       ErrorCode = "SPC_002"
)

// Phylogenetic tree.
const (
	ErrCodeTreeParseFailed  ErrorCode = "TREE_001"
	ErrCodeTreeUnavailable  ErrorCode = "TREE_002"
	ErrCodeTreeEmptyInput   ErrorCode = "TREE_003"
	ErrCodeDuplicateLeaf    ErrorCode = "TREE_004"
	ErrCodeCladeNotFound    ErrorCode = "TREE_005"
	ErrCodeSpeciesNotInTree ErrorCode = "TREE_006"
)

// Dataset artifacts and loading.
const (
	ErrCodeDataSourceUnavailable ErrorCode = "DATA_001"
	ErrCodeArtifactNotFound      ErrorCode = "DATA_002"
	ErrCodeArtifactReadFailed    ErrorCode = "DATA_003"
	ErrCodeDatasetNotLoaded      ErrorCode = "DATA_004"
)

// Event publishing.
const (
	ErrCodeEventPublishFailed ErrorCode = "EVT_001"
)

// catalogEntry ties a code to the HTTP status it surfaces as and the
// wording used when a caller supplies no message of its own.
type catalogEntry struct {
	status  int
	message string
}

// codeCatalog is the single registry behind HTTPStatusForCode and
// DefaultMessageForCode.  Keeping both halves in one entry means a code
// cannot gain a transport mapping without wording, or the other way
// around.
var codeCatalog = map[ErrorCode]catalogEntry{
	ErrCodeInternal:           {http.StatusInternalServerError, "internal server error"},
	ErrCodeBadRequest:         {http.StatusBadRequest, "bad request"},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	ErrCodeForbidden:          {http.StatusForbidden, "forbidden"},
	ErrCodeNotFound:           {http.StatusNotFound, "resource not found"},
	ErrCodeConflict:           {http.StatusConflict, "resource conflict"},
	ErrCodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests"},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, "service unavailable"},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, "request timeout"},
	ErrCodeValidation:         {http.StatusUnprocessableEntity, "validation failed"},
	ErrCodeSerialization:      {http.StatusInternalServerError, "serialization failed"},
	ErrCodeNotImplemented:     {http.StatusNotImplemented, "not implemented"},

	ErrCodeOrthogroupNotFound: {http.StatusNotFound, "orthogroup not found"},
	ErrCodeGeneNotFound:       {http.StatusNotFound, "gene not found in any orthogroup"},
	ErrCodeTableParseFailed:   {http.StatusServiceUnavailable, "failed to parse orthogroup table"},
	ErrCodeTableEmpty:         {http.StatusServiceUnavailable, "orthogroup table holds no rows"},

	ErrCodeSpeciesMappingParseFailed: {http.StatusServiceUnavailable, "failed to parse species mapping"},
	ErrCodeSpeciesMappingEmpty:       {http.StatusServiceUnavailable, "species mapping holds no entries"},

	ErrCodeTreeParseFailed:  {http.StatusInternalServerError, "failed to parse phylogenetic tree"},
	ErrCodeTreeUnavailable:  {http.StatusServiceUnavailable, "phylogenetic tree not available"},
	ErrCodeTreeEmptyInput:   {http.StatusBadRequest, "empty tree input"},
	ErrCodeDuplicateLeaf:    {http.StatusInternalServerError, "duplicate leaf name in tree"},
	ErrCodeCladeNotFound:    {http.StatusNotFound, "clade not found in tree"},
	ErrCodeSpeciesNotInTree: {http.StatusNotFound, "species not found in tree"},

	ErrCodeDataSourceUnavailable: {http.StatusServiceUnavailable, "data source unavailable"},
	ErrCodeArtifactNotFound:      {http.StatusServiceUnavailable, "dataset artifact not found"},
	ErrCodeArtifactReadFailed:    {http.StatusServiceUnavailable, "failed to read dataset artifact"},
	ErrCodeDatasetNotLoaded:      {http.StatusServiceUnavailable, "dataset not loaded"},

	ErrCodeEventPublishFailed: {http.StatusInternalServerError, "failed to publish event"},
}

// HTTPStatusForCode translates a code into the HTTP status it should be
// served with.  Unregistered codes fall back to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if e, ok := codeCatalog[code]; ok {
		return e.status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the canned wording for a code.
func DefaultMessageForCode(code ErrorCode) string {
	if e, ok := codeCatalog[code]; ok {
		return e.message
	}
	return "unknown error"
}

// IsClientError reports whether code maps onto the 4xx range.
func IsClientError(code ErrorCode) bool {
	return HTTPStatusForCode(code)/100 == 4
}

// IsServerError reports whether code maps onto the 5xx range.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code)/100 == 5
}

// ModuleForCode extracts the module prefix, "TREE" from "TREE_004".
// An empty code reports "UNKNOWN".
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "UNKNOWN"
	}
	return s
}
