package wsaa

import (
	"fmt"
	"strings"
	"time"

	"github.com/lauto554/arca-soap/pkg/models"
)

const (
	// generationSkew is issued-in-the-past tolerance for clock drift between
	// this host and the WSAA.
	generationSkew = 60 * time.Second
	// requestValidity is the validity window the WSAA grants a login ticket
	// request.
	requestValidity = 36000 * time.Second
)

// BuildRequest constructs the unsigned loginTicketRequest for a target
// service. uniqueId is the current time in whole seconds since the epoch,
// generationTime is one minute in the past and expirationTime ten hours in
// the future. Pure function of the clock and input; no failure modes.
func BuildRequest(serviceID string, now time.Time) *models.TicketRequest {
	uniqueID := now.Unix()
	return &models.TicketRequest{
		ServiceID:      serviceID,
		UniqueID:       uniqueID,
		GenerationTime: time.Unix(uniqueID, 0).UTC().Add(-generationSkew),
		ExpirationTime: time.Unix(uniqueID, 0).UTC().Add(requestValidity),
	}
}

// xmlEscaper covers the characters with markup meaning in element content.
// Legal service identifiers contain none of them and render unchanged.
var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// MarshalRequest serializes a ticket request to the fixed XML document the
// WSAA expects. Tag names and ordering are part of the wire contract: header
// with uniqueId, generationTime and expirationTime, then service, under a
// loginTicketRequest root with a version attribute.
func MarshalRequest(req *models.TicketRequest) []byte {
	const layout = "2006-01-02T15:04:05Z07:00"
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<loginTicketRequest version="1.0">
<header>
    <uniqueId>%d</uniqueId>
    <generationTime>%s</generationTime>
    <expirationTime>%s</expirationTime>
</header>
<service>%s</service>
</loginTicketRequest>`,
		req.UniqueID,
		req.GenerationTime.Format(layout),
		req.ExpirationTime.Format(layout),
		xmlEscaper.Replace(req.ServiceID),
	)
	return []byte(doc)
}
