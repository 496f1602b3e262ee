package wsaa

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

// LoginResult is the interpreted outcome of a loginCms exchange. Exactly one
// of Ticket or AlreadyAuthenticated is set: an alreadyAuthenticated fault is
// a non-error terminal outcome, not a failure.
type LoginResult struct {
	Ticket               *models.Ticket
	AlreadyAuthenticated bool
	Message              string
}

// The WSAA uses two fault envelope forms with different namespace prefixes
// (soap: and soapenv:), so fault and return sections are matched on local
// tag name only.
var (
	faultSectionRe   = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?Fault[\s>].*?</(?:[a-z0-9]+:)?Fault>`)
	faultCodeRe      = regexp.MustCompile(`(?is)<faultcode[^>]*>(.*?)</faultcode>`)
	faultStringRe    = regexp.MustCompile(`(?is)<faultstring[^>]*>(.*?)</faultstring>`)
	loginReturnRe    = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?loginCmsReturn[^>]*>(.*?)</(?:[a-z0-9]+:)?loginCmsReturn>`)
	cdataRe          = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*)\]\]>\s*$`)
	alreadyAuthdMark = "alreadyauthenticated"
)

// Interpret parses a raw loginCms response into either a ticket or a
// classified fault. Precedence: fault section first, then loginCmsReturn,
// else malformed.
func Interpret(raw []byte) (*LoginResult, error) {
	body := string(raw)

	if faultSectionRe.MatchString(body) {
		code := extractFirst(faultCodeRe, body, "unknown fault")
		message := extractFirst(faultStringRe, body, "unknown error")

		if strings.Contains(strings.ToLower(code), alreadyAuthdMark) {
			return &LoginResult{AlreadyAuthenticated: true, Message: message}, nil
		}
		return nil, faults.New(faults.KindRemoteFault, fmt.Sprintf("%s: %s", code, message))
	}

	if m := loginReturnRe.FindStringSubmatch(body); m != nil {
		inner := unescapeTicket(m[1])

		ticket := &models.Ticket{
			Token:          extractTag(inner, "token"),
			Sign:           extractTag(inner, "sign"),
			Source:         extractTag(inner, "source"),
			Destination:    extractTag(inner, "destination"),
			UniqueID:       extractTag(inner, "uniqueId"),
			GenerationTime: extractTag(inner, "generationTime"),
			ExpirationTime: extractTag(inner, "expirationTime"),
		}
		if ticket.Token == "" || ticket.Sign == "" {
			return nil, faults.New(faults.KindMalformedResponse, "loginCmsReturn missing token or sign")
		}
		return &LoginResult{Ticket: ticket}, nil
	}

	return nil, faults.New(faults.KindMalformedResponse, "response matches neither fault nor loginCmsReturn")
}

// unescapeTicket unwraps an optional CDATA section and decodes the entity
// encoding of the embedded loginTicketResponse document. The ampersand is
// decoded last so that double-encoded entities survive one level.
func unescapeTicket(inner string) string {
	if m := cdataRe.FindStringSubmatch(inner); m != nil {
		inner = m[1]
	}
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(inner)
}

// extractTag returns the textual content of the first occurrence of the
// named tag, or an empty string. Fields are taken verbatim; no format
// validation beyond presence.
func extractTag(doc, tag string) string {
	re := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `[^>]*>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	if m := re.FindStringSubmatch(doc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractFirst(re *regexp.Regexp, body, fallback string) string {
	if m := re.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return fallback
}
