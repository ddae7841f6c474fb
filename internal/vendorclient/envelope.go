package vendorclient

import "encoding/json"

// Body is a discriminated view of the vendor envelope's "body" key,
// which can arrive as a JSON array, a JSON object, or be absent
// entirely. Representing the three cases explicitly keeps callers
// from scattering ad-hoc "if body, ok := x[\"body\"]" checks (design
// note in spec.md §9).
type Body struct {
	kind    bodyKind
	list    []json.RawMessage
	object  map[string]json.RawMessage
	rawJSON json.RawMessage
}

type bodyKind int

const (
	bodyAbsent bodyKind = iota
	bodyList
	bodyObject
)

// IsAbsent reports whether the envelope carried no body at all.
func (b Body) IsAbsent() bool { return b.kind == bodyAbsent }

// AsList returns the body as a list of raw JSON elements and true, or
// (nil, false) if the body was not a JSON array.
func (b Body) AsList() ([]json.RawMessage, bool) {
	if b.kind != bodyList {
		return nil, false
	}
	return b.list, true
}

// AsObject returns the body as a field map and true, or (nil, false)
// if the body was not a JSON object.
func (b Body) AsObject() (map[string]json.RawMessage, bool) {
	if b.kind != bodyObject {
		return nil, false
	}
	return b.object, true
}

// Raw returns the untouched JSON bytes of the body, or nil if absent.
func (b Body) Raw() json.RawMessage { return b.rawJSON }

func parseBody(raw json.RawMessage) Body {
	if len(raw) == 0 {
		return Body{kind: bodyAbsent}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return Body{kind: bodyList, list: list, rawJSON: raw}
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err == nil {
		return Body{kind: bodyObject, object: object, rawJSON: raw}
	}
	return Body{kind: bodyAbsent}
}

// Envelope is the common shape of every vendor response:
// {header:{result_code, user_token, ...}, body: <list|dict|absent>}.
type Envelope struct {
	Header struct {
		ResultCode        string `json:"result_code"`
		ResultDescription string `json:"result_description"`
		UserToken         string `json:"user_token"`
	} `json:"header"`
	Body json.RawMessage `json:"body"`
}

// Success reports header.result_code == "000", the vendor's definition
// of a successful call (spec.md §4.1). Anything else is a data-absent
// signal, not a transport error.
func (e Envelope) Success() bool { return e.Header.ResultCode == "000" }

// ParsedBody returns the discriminated Body value for this envelope.
func (e Envelope) ParsedBody() Body { return parseBody(e.Body) }

// requestEnvelope is the common shape of every vendor request body.
type requestEnvelope struct {
	Header struct {
		LoggedUser string `json:"logged_user"`
		UserToken  string `json:"user_token"`
	} `json:"header"`
	Body json.RawMessage `json:"body,omitempty"`
}
