package wsaa

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

const faultBody = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>
<soapenv:Fault>
<faultcode>ns1:coe.alreadyAuthenticated</faultcode>
<faultstring>El CEE ya posee un TA valido</faultstring>
</soapenv:Fault>
</soapenv:Body>
</soapenv:Envelope>`

func newTestTransport(t *testing.T, handler http.HandlerFunc) *SOAPTransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSOAPTransport(5*time.Second, nil,
		WithEndpoint(models.EnvironmentHomologation, srv.URL),
	)
}

func TestSOAPTransport_Submit(t *testing.T) {
	cms := []byte("signed-cms-der-bytes")

	t.Run("posts the wrapped envelope with the protocol headers", func(t *testing.T) {
		var gotBody string
		var gotAction, gotContentType string
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			gotBody = string(raw)
			gotAction = r.Header.Get("SOAPAction")
			gotContentType = r.Header.Get("Content-Type")
			_, _ = w.Write([]byte(faultBody))
		})

		_, err := tr.Submit(context.Background(), cms, models.EnvironmentHomologation)

		require.NoError(t, err)
		assert.Equal(t, `""`, gotAction)
		assert.Equal(t, "text/xml; charset=utf-8", gotContentType)
		assert.Contains(t, gotBody, "<wsaa:loginCms>")
		assert.Contains(t, gotBody, base64.StdEncoding.EncodeToString(cms))
		assert.Contains(t, gotBody, `xmlns:wsaa="http://wsaa.view.sua.dvadac.desein.afip.gov"`)
	})

	t.Run("status 500 with a SOAP body is transport success", func(t *testing.T) {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(faultBody))
		})

		raw, err := tr.Submit(context.Background(), cms, models.EnvironmentHomologation)

		require.NoError(t, err)
		assert.Contains(t, string(raw), "coe.alreadyAuthenticated")
	})

	t.Run("status 500 with a non-protocol body is a transport failure", func(t *testing.T) {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<html>gateway error</html>"))
		})

		_, err := tr.Submit(context.Background(), cms, models.EnvironmentHomologation)

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindTransport))
	})

	t.Run("empty body is a transport failure regardless of status", func(t *testing.T) {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		_, err := tr.Submit(context.Background(), cms, models.EnvironmentHomologation)

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindTransport))
	})

	t.Run("connection error is a transport failure", func(t *testing.T) {
		tr := NewSOAPTransport(time.Second, nil,
			WithEndpoint(models.EnvironmentHomologation, "http://127.0.0.1:1"),
		)

		_, err := tr.Submit(context.Background(), cms, models.EnvironmentHomologation)

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindTransport))
	})

	t.Run("timeout converts to a transport failure", func(t *testing.T) {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(faultBody))
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := tr.Submit(ctx, cms, models.EnvironmentHomologation)

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindTransport))
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		tr := NewSOAPTransport(time.Second, nil)

		_, err := tr.Submit(context.Background(), cms, models.Environment("staging"))

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindTransport))
	})
}

func TestDefaultEndpoints(t *testing.T) {
	tr := NewSOAPTransport(0, nil)

	assert.Equal(t, HomologationEndpoint, tr.endpoints[models.EnvironmentHomologation])
	assert.Equal(t, ProductionEndpoint, tr.endpoints[models.EnvironmentProduction])
}
