package wsaa

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lauto554/arca-soap/pkg/faults"
)

const ticketResponse = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>
<loginCmsResponse>
<loginCmsReturn>&lt;?xml version="1.0" encoding="UTF-8"?&gt;
&lt;loginTicketResponse version="1.0"&gt;
&lt;header&gt;
&lt;source&gt;CN=wsaahomo, O=AFIP, C=AR&lt;/source&gt;
&lt;destination&gt;SERIALNUMBER=CUIT 20123456789&lt;/destination&gt;
&lt;uniqueId&gt;2444474668&lt;/uniqueId&gt;
&lt;generationTime&gt;2025-03-14T15:08:26-03:00&lt;/generationTime&gt;
&lt;expirationTime&gt;2025-03-15T03:08:26-03:00&lt;/expirationTime&gt;
&lt;/header&gt;
&lt;credentials&gt;
&lt;token&gt;PD94bWwgdG9rZW4=&lt;/token&gt;
&lt;sign&gt;c2lnbmF0dXJlLWJ5dGVz&lt;/sign&gt;
&lt;/credentials&gt;
&lt;/loginTicketResponse&gt;</loginCmsReturn>
</loginCmsResponse>
</soapenv:Body>
</soapenv:Envelope>`

func TestInterpret_Ticket(t *testing.T) {
	result, err := Interpret([]byte(ticketResponse))

	require.NoError(t, err)
	require.NotNil(t, result.Ticket)
	assert.False(t, result.AlreadyAuthenticated)

	ticket := result.Ticket
	assert.Equal(t, "PD94bWwgdG9rZW4=", ticket.Token)
	assert.Equal(t, "c2lnbmF0dXJlLWJ5dGVz", ticket.Sign)
	assert.Equal(t, "CN=wsaahomo, O=AFIP, C=AR", ticket.Source)
	assert.Equal(t, "SERIALNUMBER=CUIT 20123456789", ticket.Destination)
	assert.Equal(t, "2444474668", ticket.UniqueID)
	assert.Equal(t, "2025-03-14T15:08:26-03:00", ticket.GenerationTime)
	assert.Equal(t, "2025-03-15T03:08:26-03:00", ticket.ExpirationTime)
}

func TestInterpret_TicketInCDATA(t *testing.T) {
	body := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:loginCmsResponse xmlns:ns2="https://wsaa.view.sua.dvadac.desein.afip.gov">
<ns2:loginCmsReturn><![CDATA[<loginTicketResponse version="1.0">
<header><source>CN=wsaa</source><destination>CUIT 20</destination>
<uniqueId>1</uniqueId>
<generationTime>2025-03-14T15:08:26-03:00</generationTime>
<expirationTime>2025-03-15T03:08:26-03:00</expirationTime></header>
<credentials><token>T0K</token><sign>S1GN</sign></credentials>
</loginTicketResponse>]]></ns2:loginCmsReturn>
</ns2:loginCmsResponse>
</soap:Body>
</soap:Envelope>`

	result, err := Interpret([]byte(body))

	require.NoError(t, err)
	require.NotNil(t, result.Ticket)
	assert.Equal(t, "T0K", result.Ticket.Token)
	assert.Equal(t, "S1GN", result.Ticket.Sign)
}

func TestInterpret_Faults(t *testing.T) {
	faultEnvelope := func(prefix, code, message string) []byte {
		return []byte(fmt.Sprintf(`<%[1]s:Envelope xmlns:%[1]s="http://schemas.xmlsoap.org/soap/envelope/">
<%[1]s:Body>
<%[1]s:Fault>
<faultcode>%[2]s</faultcode>
<faultstring>%[3]s</faultstring>
</%[1]s:Fault>
</%[1]s:Body>
</%[1]s:Envelope>`, prefix, code, message))
	}

	t.Run("alreadyAuthenticated is a non-error outcome", func(t *testing.T) {
		result, err := Interpret(faultEnvelope("soapenv", "ns1:coe.alreadyAuthenticated", "El CEE ya posee un TA valido"))

		require.NoError(t, err)
		assert.True(t, result.AlreadyAuthenticated)
		assert.Nil(t, result.Ticket)
		assert.Equal(t, "El CEE ya posee un TA valido", result.Message)
	})

	t.Run("alreadyAuthenticated matches case-insensitively for any faultstring", func(t *testing.T) {
		result, err := Interpret(faultEnvelope("soap", "ns1:coe.ALREADYAUTHENTICATED", "whatever text"))

		require.NoError(t, err)
		assert.True(t, result.AlreadyAuthenticated)
	})

	t.Run("both prefix variants reach the fault branch", func(t *testing.T) {
		for _, prefix := range []string{"soap", "soapenv"} {
			_, err := Interpret(faultEnvelope(prefix, "ns1:cms.sign.invalid", "Firma invalida"))
			require.Error(t, err, "prefix %s", prefix)
			assert.True(t, faults.Is(err, faults.KindRemoteFault))
		}
	})

	t.Run("other fault codes carry code and message", func(t *testing.T) {
		_, err := Interpret(faultEnvelope("soapenv", "ns1:cms.cert.expired", "Certificado expirado"))

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindRemoteFault))
		assert.Contains(t, err.Error(), "cms.cert.expired")
		assert.Contains(t, err.Error(), "Certificado expirado")
	})
}

func TestInterpret_Malformed(t *testing.T) {
	t.Run("missing token is malformed", func(t *testing.T) {
		body := `<soapenv:Envelope><soapenv:Body><loginCmsReturn>&lt;loginTicketResponse&gt;
&lt;credentials&gt;&lt;sign&gt;S&lt;/sign&gt;&lt;/credentials&gt;&lt;/loginTicketResponse&gt;</loginCmsReturn></soapenv:Body></soapenv:Envelope>`

		_, err := Interpret([]byte(body))

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindMalformedResponse))
	})

	t.Run("missing sign is malformed", func(t *testing.T) {
		body := `<soapenv:Envelope><soapenv:Body><loginCmsReturn>&lt;loginTicketResponse&gt;
&lt;credentials&gt;&lt;token&gt;T&lt;/token&gt;&lt;/credentials&gt;&lt;/loginTicketResponse&gt;</loginCmsReturn></soapenv:Body></soapenv:Envelope>`

		_, err := Interpret([]byte(body))

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindMalformedResponse))
	})

	t.Run("unrecognized shape is malformed", func(t *testing.T) {
		_, err := Interpret([]byte(`<soapenv:Envelope><soapenv:Body/></soapenv:Envelope>`))

		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.KindMalformedResponse))
	})
}
