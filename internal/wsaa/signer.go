package wsaa

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

// OpenSSLSigner signs a request document by invoking the openssl binary as
// the external signing oracle, producing a CMS/PKCS#7 signed-data envelope in
// DER form. The certificate and key are written to an exclusively owned
// temporary directory that is removed on every exit path; each call gets its
// own directory, so concurrent invocations never share paths.
type OpenSSLSigner struct {
	// Binary is the oracle executable. Defaults to "openssl".
	Binary string
	// TempDir is the parent directory for per-call material. Defaults to the
	// system temp directory.
	TempDir string

	logger *slog.Logger
}

// NewOpenSSLSigner creates a signer that shells out to openssl.
func NewOpenSSLSigner(logger *slog.Logger) *OpenSSLSigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenSSLSigner{
		Binary: "openssl",
		logger: logger,
	}
}

// Sign produces the signed envelope over document. It fails with a signing
// fault when the oracle cannot be invoked, exits abnormally, or produces
// empty output. The oracle's stderr is captured into the fault detail;
// material bytes never appear there.
func (s *OpenSSLSigner) Sign(ctx context.Context, document []byte, material *models.SigningMaterial) ([]byte, error) {
	if !material.Complete() {
		return nil, faults.New(faults.KindPrecondition, "incomplete signing material")
	}

	dir, err := os.MkdirTemp(s.TempDir, "wsaa-sign-")
	if err != nil {
		return nil, faults.Wrap(faults.KindSigning, "create signing workspace", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("failed to remove signing workspace", "dir", dir, "error", rmErr)
		}
	}()

	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, material.Certificate, 0o600); err != nil {
		return nil, faults.Wrap(faults.KindSigning, "write certificate", err)
	}
	if err := os.WriteFile(keyPath, material.PrivateKey, 0o600); err != nil {
		return nil, faults.Wrap(faults.KindSigning, "write private key", err)
	}

	binary := s.Binary
	if binary == "" {
		binary = "openssl"
	}

	cmd := exec.CommandContext(ctx, binary,
		"smime", "-sign",
		"-signer", certPath,
		"-inkey", keyPath,
		"-outform", "DER",
		"-nodetach",
	)
	cmd.Stdin = bytes.NewReader(document)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, faults.Wrap(faults.KindSigning, "signing oracle interrupted", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		s.logger.Error("signing oracle failed", "error", err)
		return nil, faults.Wrap(faults.KindSigning, fmt.Sprintf("signing oracle: %s", detail), err)
	}

	signed := stdout.Bytes()
	if len(signed) == 0 {
		return nil, faults.New(faults.KindSigning, "signing oracle produced empty output")
	}

	s.logger.Debug("request document signed", "cms_bytes", len(signed))
	return signed, nil
}
