// Package bridge carries text messages between rendered views and the host
// process, and implements the host side of the diagram message vocabulary.
package bridge

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrBridgeUnavailable is returned when no messaging primitive is reachable.
	ErrBridgeUnavailable = errors.New("bridge: unavailable")
	// ErrMalformedMessage is returned for messages outside the vocabulary.
	ErrMalformedMessage = errors.New("bridge: malformed message")
	// ErrMigrationDisabled is returned for conversions while migration is off.
	ErrMigrationDisabled = errors.New("bridge: migration disabled")
)

// ConvertPrefix starts a v1 conversion request.
const ConvertPrefix = "convert_v1_"

// MessageKind identifies a request in the vocabulary.
type MessageKind int

const (
	MessageConvert MessageKind = iota + 1
	MessageEdit
)

func (k MessageKind) String() string {
	switch k {
	case MessageConvert:
		return "convert"
	case MessageEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// Message is a decoded bridge request.
type Message struct {
	Kind MessageKind
	// ResourceID is the v1 JSON id for conversions and the SVG id for edits.
	ResourceID string
	Raw        string
}

var (
	attachmentURLPattern = regexp.MustCompile(`^(?:file|joplin[-a-z]+|https?)://.*/([a-zA-Z0-9]+)[.]\w+(?:[?#]|$)`)
	resourceLinkPattern  = regexp.MustCompile(`^:/([a-zA-Z0-9]+)$`)
)

// ParseMessage percent-decodes raw and classifies it.
func ParseMessage(raw string) (Message, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if id, ok := strings.CutPrefix(decoded, ConvertPrefix); ok {
		if id == "" {
			return Message{}, fmt.Errorf("%w: convert request without resource id", ErrMalformedMessage)
		}
		return Message{Kind: MessageConvert, ResourceID: id, Raw: decoded}, nil
	}

	if m := attachmentURLPattern.FindStringSubmatch(decoded); m != nil {
		return Message{Kind: MessageEdit, ResourceID: m[1], Raw: decoded}, nil
	}
	if m := resourceLinkPattern.FindStringSubmatch(decoded); m != nil {
		return Message{Kind: MessageEdit, ResourceID: m[1], Raw: decoded}, nil
	}
	return Message{}, fmt.Errorf("%w: %q", ErrMalformedMessage, decoded)
}

// ConvertMessage builds the request the view sends for a v1 diagram.
func ConvertMessage(jsonID string) string {
	return ConvertPrefix + url.PathEscape(jsonID)
}

// EditMessage builds the request the view sends for an attachment URL.
func EditMessage(src string) string {
	return url.PathEscape(src)
}
