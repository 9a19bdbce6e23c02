package tracking

import (
	"errors"
	"net/http"
	"time"

	"github.com/ronny/linkdb/models"
)

const (
	EventLinkCreated = "LinkCreated"
	EventLinkLookup  = "LinkLookup"
)

type LinkCreatedPayload struct {
	Event     string       `json:"event"`
	Database  string       `json:"database"`
	URI       string       `json:"uri"`
	Link      *models.Link `json:"link"`
	CreatedAt string       `json:"createdAt"`
}

func NewLinkCreatedPayload(database, uri string, link *models.Link) *LinkCreatedPayload {
	return &LinkCreatedPayload{
		Event:     EventLinkCreated,
		Database:  database,
		URI:       uri,
		Link:      link,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

type LinkLookupPayload struct {
	Event              string            `json:"event"`
	LinkID             string            `json:"linkId"`
	LinkFound          bool              `json:"linkFound"`
	TargetURI          string            `json:"targetUri"` // not necessarily the same as the actual redirect URL (`ResponseLocation`)
	RequestHost        string            `json:"requestHost"`
	RequestHeaders     map[string]string `json:"requestHeaders"`
	RequestedAt        string            `json:"requestedAt"`
	ResponseStatusCode int               `json:"responseStatusCode"`
	ResponseLocation   string            `json:"responseLocation"`
}

type PayloadBuilder struct {
	trustedHeaders []string
}

func NewPayloadBuilder(trustedHeaders []string) *PayloadBuilder {
	return &PayloadBuilder{
		trustedHeaders: trustedHeaders,
	}
}

// BuildLinkLookupPayload builds the payload for a lookup of linkID. uri is
// the URI the link is stored under, empty when it wasn't found.
func (pb *PayloadBuilder) BuildLinkLookupPayload(
	linkID string,
	uri string,
	r *http.Request,
	responseStatusCode int,
	responseLocation string,
) (*LinkLookupPayload, error) {
	if r == nil {
		return nil, errors.New("missing request")
	}
	payload := &LinkLookupPayload{
		Event:              EventLinkLookup,
		LinkID:             linkID,
		LinkFound:          uri != "",
		TargetURI:          uri,
		RequestHost:        r.Host,
		RequestHeaders:     make(map[string]string),
		RequestedAt:        time.Now().UTC().Format(time.RFC3339),
		ResponseStatusCode: responseStatusCode,
		ResponseLocation:   responseLocation,
	}

	for _, key := range pb.trustedHeaders {
		value := r.Header.Get(key)
		// basically emulating "json:omitempty"
		if value != "" {
			payload.RequestHeaders[key] = value
		}
	}

	return payload, nil
}

var DefaultAWSTrustedHeaders = []string{
	"User-Agent",
	"Referer",
	"X-Forwarded-For",
	"CloudFront-Viewer-Country",
	"CloudFront-Is-Desktop-Viewer",
	"CloudFront-Is-Mobile-Viewer",
}

var DefaultCloudflareTrustedHeaders = []string{
	"User-Agent",
	"Referer",
	"CF-Connecting-IP",
	"CF-IP-Country",
}
