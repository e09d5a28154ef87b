package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// capabilityExtensionOID tags the custom X.509 extension a capability
// certificate carries its grant in. The arc is under Dotlanth's private
// enterprise-use branch to avoid colliding with any registered OID.
var capabilityExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 61166, 1, 1}

// capabilityGrant is the JSON payload embedded in a capability
// certificate's custom extension. SealedSecrets holds ciphertext only —
// see sealDotSecrets/unsealDotSecret in secrets.go — so a capability
// certificate can carry a dot's runtime secrets (API keys, credentials)
// without ever putting plaintext in an X.509 extension.
type capabilityGrant struct {
	DotID         string            `json:"dot_id"`
	Capabilities  []Capability      `json:"capabilities"`
	SealedSecrets map[string][]byte `json:"sealed_secrets,omitempty"`
}

// capabilityCertValidity bounds how long an issued capability certificate
// is trusted, independent of any per-capability expiry it carries.
const capabilityCertValidity = 24 * time.Hour

// IssueCapabilityCertificate signs an X.509 certificate binding dotID to a
// capability grant, embedded as a custom extension. The returned
// certificate's ordinary validity window (NotBefore/NotAfter) is the
// signing authority's own revocation boundary; individual capabilities'
// ExpiresAt fields are enforced separately by CapabilitySet.
func (ca *CapabilityAuthority) IssueCapabilityCertificate(dotID string, caps []Capability) (*x509.Certificate, *rsa.PrivateKey, error) {
	return ca.IssueCapabilityCertificateWithSecrets(dotID, caps, nil)
}

// IssueCapabilityCertificateWithSecrets is IssueCapabilityCertificate
// extended with a set of plaintext secrets (e.g. {"api_key": ...}) that
// get sealed with the cluster encryption key, bound to dotID, and
// embedded in the certificate's grant extension alongside the
// capabilities. Retrieve a sealed value later with UnsealCapabilitySecret.
func (ca *CapabilityAuthority) IssueCapabilityCertificateWithSecrets(dotID string, caps []Capability, secrets map[string][]byte) (*x509.Certificate, *rsa.PrivateKey, error) {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil || ca.rootKey == nil {
		return nil, nil, fmt.Errorf("capability authority not initialized")
	}

	sealed, err := sealDotSecrets(dotID, secrets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seal dot secrets: %w", err)
	}

	grant := capabilityGrant{DotID: dotID, Capabilities: caps, SealedSecrets: sealed}
	payload, err := json.Marshal(grant)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode capability grant: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, nodeKeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate capability key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Dotlanth Cluster"},
			CommonName:   fmt.Sprintf("cap-%s", dotID),
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(capabilityCertValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtraExtensions: []pkix.Extension{
			{Id: capabilityExtensionOID, Critical: false, Value: payload},
		},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, ca.rootCert, &key.PublicKey, ca.rootKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create capability certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse capability certificate: %w", err)
	}

	ca.cacheCertificate(dotID, cert, key)
	return cert, key, nil
}

// VerifyCapabilityCertificate checks cert's signature chain against the
// root CA and decodes its embedded grant into a CapabilitySet.
func (ca *CapabilityAuthority) VerifyCapabilityCertificate(cert *x509.Certificate) (CapabilitySet, error) {
	ca.mu.RLock()
	rootCert := ca.rootCert
	ca.mu.RUnlock()

	if rootCert == nil {
		return CapabilitySet{}, fmt.Errorf("capability authority not initialized")
	}

	roots := x509.NewCertPool()
	roots.AddCert(rootCert)
	if _, err := cert.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}}); err != nil {
		return CapabilitySet{}, fmt.Errorf("capability certificate verification failed: %w", err)
	}

	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(capabilityExtensionOID) {
			continue
		}
		var grant capabilityGrant
		if err := json.Unmarshal(ext.Value, &grant); err != nil {
			return CapabilitySet{}, fmt.Errorf("failed to decode capability grant: %w", err)
		}
		return CapabilitySet{DotID: grant.DotID, Capabilities: grant.Capabilities}, nil
	}

	return CapabilitySet{}, fmt.Errorf("certificate carries no capability extension")
}

// UnsealCapabilitySecret decodes cert's embedded grant and unseals the
// secret stored under name, failing if the certificate carries no such
// secret or was not issued for the dot the secret was sealed for. This
// method checks neither cert's signature chain nor its validity window;
// VerifyCapabilityCertificate does the chain check.
func (ca *CapabilityAuthority) UnsealCapabilitySecret(cert *x509.Certificate, name string) ([]byte, error) {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(capabilityExtensionOID) {
			continue
		}
		var grant capabilityGrant
		if err := json.Unmarshal(ext.Value, &grant); err != nil {
			return nil, fmt.Errorf("failed to decode capability grant: %w", err)
		}
		sealed, ok := grant.SealedSecrets[name]
		if !ok {
			return nil, fmt.Errorf("certificate carries no secret named %q", name)
		}
		return unsealDotSecret(grant.DotID, sealed)
	}
	return nil, fmt.Errorf("certificate carries no capability extension")
}
