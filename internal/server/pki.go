package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/config"
	"github.com/awcullen/opcua/ua"
	"github.com/sirupsen/logrus"
)

const pkiAppName = "MixerUnitUaServer"

func certFile(cert config.Certificate) string {
	return filepath.Join(cert.PKIDir, "server.crt")
}

func keyFile(cert config.Certificate) string {
	return filepath.Join(cert.PKIDir, "server.key")
}

func ensurePKI(cert config.Certificate, host string, logger *logrus.Logger) error {
	// reuse an existing pki directory
	if _, err := os.Stat(cert.PKIDir); !os.IsNotExist(err) {
		return nil
	}

	if err := os.MkdirAll(cert.PKIDir, os.ModeDir|0755); err != nil {
		return err
	}

	logger.WithField("dir", cert.PKIDir).Info("Creating self-signed server certificate")
	return createNewCertificate(cert, host, logger)
}

func createNewCertificate(cert config.Certificate, host string, logger *logrus.Logger) error {
	// create a key pair.
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return ua.BadCertificateInvalid
	}

	// get local ip address.
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return ua.BadCertificateInvalid
	}
	conn.Close()
	localAddr := conn.LocalAddr().(*net.UDPAddr)

	// create a certificate.
	applicationURI, _ := url.Parse(fmt.Sprintf("urn:%s:%s", host, pkiAppName))
	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	subjectKeyHash := sha1.New()
	subjectKeyHash.Write(key.PublicKey.N.Bytes())
	subjectKeyId := subjectKeyHash.Sum(nil)

	dnsNames := make([]string, 0, len(cert.AdditionalHosts)+1)
	dnsNames = append(dnsNames, host)
	dnsNames = append(dnsNames, cert.AdditionalHosts...)

	ipAddresses := make([]net.IP, 0, len(cert.AdditionalIPs)+1)
	ipAddresses = append(ipAddresses, localAddr.IP)
	for _, ipString := range cert.AdditionalIPs {
		ip := net.ParseIP(ipString)
		if ip == nil {
			logger.WithField("ip", ipString).Warn("Ignoring invalid certificate IP")
			continue
		}
		ipAddresses = append(ipAddresses, ip)
	}

	uris := []*url.URL{applicationURI}
	for _, h := range cert.AdditionalHosts {
		u, e := url.Parse(fmt.Sprintf("urn:%s:%s", h, pkiAppName))
		if e != nil {
			continue
		}
		uris = append(uris, u)
	}

	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: pkiAppName},
		SubjectKeyId:          subjectKeyId,
		AuthorityKeyId:        subjectKeyId,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment | x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
		URIs:                  uris,
	}

	rawcrt, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return ua.BadCertificateInvalid
	}

	if err := writePEM(certFile(cert), "CERTIFICATE", rawcrt); err != nil {
		return err
	}
	return writePEM(keyFile(cert), "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
