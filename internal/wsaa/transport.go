package wsaa

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

// Fixed WSAA login endpoints per environment.
const (
	HomologationEndpoint = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	ProductionEndpoint   = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
)

// loginNamespace is the namespace the WSAA declares for the loginCms operation.
const loginNamespace = "http://wsaa.view.sua.dvadac.desein.afip.gov"

// SOAPTransport submits signed envelopes to the WSAA loginCms operation over
// HTTPS. The WSAA returns business faults as ordinary SOAP bodies, sometimes
// under HTTP 500: any informative status with a SOAP body is transport
// success, and only an empty or non-SOAP body at error status is a transport
// failure. Retries are not attempted here.
type SOAPTransport struct {
	client    *http.Client
	endpoints map[models.Environment]string
	logger    *slog.Logger
}

// TransportOption customizes a SOAPTransport.
type TransportOption func(*SOAPTransport)

// WithEndpoint overrides the endpoint for one environment. Used by tests and
// by deployments that front the WSAA with a proxy.
func WithEndpoint(env models.Environment, url string) TransportOption {
	return func(t *SOAPTransport) {
		t.endpoints[env] = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *SOAPTransport) {
		t.client = client
	}
}

// NewSOAPTransport creates a transport with a bounded timeout. A
// non-positive timeout falls back to 15 seconds, matching the WSAA's
// observed response ceiling.
func NewSOAPTransport(timeout time.Duration, logger *slog.Logger, opts ...TransportOption) *SOAPTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &SOAPTransport{
		client: &http.Client{Timeout: timeout},
		endpoints: map[models.Environment]string{
			models.EnvironmentHomologation: HomologationEndpoint,
			models.EnvironmentProduction:   ProductionEndpoint,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// loginEnvelope wraps a base64-encoded CMS envelope in the loginCms SOAP
// request body.
func loginEnvelope(cmsBase64 string) []byte {
	doc := fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
                      xmlns:wsaa="%s">
<soapenv:Header/>
<soapenv:Body>
    <wsaa:loginCms>
        <wsaa:in>%s</wsaa:in>
    </wsaa:loginCms>
</soapenv:Body>
</soapenv:Envelope>`, loginNamespace, cmsBase64)
	return []byte(doc)
}

// Submit posts the signed envelope to the environment's login endpoint and
// returns the raw response body.
func (t *SOAPTransport) Submit(ctx context.Context, envelope []byte, env models.Environment) ([]byte, error) {
	endpoint, ok := t.endpoints[env]
	if !ok {
		return nil, faults.New(faults.KindTransport, fmt.Sprintf("no endpoint for environment %q", env))
	}

	body := loginEnvelope(base64.StdEncoding.EncodeToString(envelope))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, faults.Wrap(faults.KindTransport, "build login request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	t.logger.Debug("submitting loginCms request", "endpoint", endpoint, "cms_base64_bytes", len(body))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.KindTransport, "post loginCms", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Wrap(faults.KindTransport, "read login response", err)
	}

	t.logger.Debug("loginCms response received", "status", resp.StatusCode, "bytes", len(raw))

	if len(raw) == 0 {
		return nil, faults.New(faults.KindTransport,
			fmt.Sprintf("empty response with status %d", resp.StatusCode))
	}

	// Faults ride on 500 with a well-formed SOAP body; that is a successful
	// transport carrying an application fault.
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < 600 {
		if resp.StatusCode < 300 || isSOAPBody(raw) {
			return raw, nil
		}
	}

	return nil, faults.New(faults.KindTransport,
		fmt.Sprintf("status %d with non-protocol body", resp.StatusCode))
}

// isSOAPBody reports whether the body carries a SOAP envelope under either
// of the prefix variants the WSAA emits.
func isSOAPBody(raw []byte) bool {
	body := strings.ToLower(string(raw))
	return strings.Contains(body, "<soap") || strings.Contains(body, "<soapenv:")
}
