package mailer

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/emersion/go-msgauth/dkim"
)

var signedHeaders = []string{"From", "To", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type"}

// Sign prepends a DKIM-Signature header to msg.
func Sign(msg []byte, domain, selector string, key crypto.Signer) ([]byte, error) {
	var out bytes.Buffer
	err := dkim.Sign(&out, bytes.NewReader(msg), &dkim.SignOptions{
		Domain:     domain,
		Selector:   selector,
		Signer:     key,
		HeaderKeys: signedHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("dkim sign: %w", err)
	}
	return out.Bytes(), nil
}

// LoadDKIMKey reads a PEM encoded PKCS#8 or PKCS#1 private key.
func LoadDKIMKey(path string) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dkim key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("dkim key: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("dkim key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("dkim key: unsupported key type %T", key)
	}
	return signer, nil
}

type DKIMResult int

const (
	DKIMNone DKIMResult = iota
	DKIMPass
	DKIMFail
	DKIMTempError
)

func (r DKIMResult) String() string {
	switch r {
	case DKIMNone:
		return "none"
	case DKIMPass:
		return "pass"
	case DKIMFail:
		return "fail"
	case DKIMTempError:
		return "temperror"
	default:
		return "unknown"
	}
}

// CheckDKIM verifies the signatures of a message. lookupTXT resolves the
// selector record; nil uses DNS.
func CheckDKIM(msg []byte, lookupTXT func(domain string) ([]string, error)) (DKIMResult, error) {
	verifications, err := dkim.VerifyWithOptions(bytes.NewReader(msg), &dkim.VerifyOptions{LookupTXT: lookupTXT})
	if err != nil {
		logging.WarnLog("DKIM check error: %v", err)
		return DKIMTempError, err
	}
	if len(verifications) == 0 {
		return DKIMNone, nil
	}

	var lastErr error
	for _, v := range verifications {
		if v.Err == nil {
			logging.DebugLog("DKIM check: valid signature for domain=%s", v.Domain)
			return DKIMPass, nil
		}
		lastErr = v.Err
	}
	logging.WarnLog("DKIM check: all signatures failed, last error: %v", lastErr)
	return DKIMFail, lastErr
}
