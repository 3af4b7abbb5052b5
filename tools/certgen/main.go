// Package main generates a development Certificate Authority and a server
// certificate for the trade journal API, writing them to a directory.
//
// The server is started with -tls-cert <dir>/server.crt -tls-key <dir>/server.key
// and the client trusts the CA with --ca-file <dir>/ca.crt. An existing CA in
// the directory is reused so clients keep trusting re-issued server certificates.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/tradejournal/internal/certgen"
)

const (
	caValidity = 10 * 365 * 24 * time.Hour
	caName     = "Trade Journal Development CA"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	days := flag.Int("days", 365, "server certificate validity in days")
	flag.Parse()

	if err := run(*dir, splitHosts(*hosts), time.Duration(*days)*24*time.Hour); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// run loads or creates the CA under dir and issues a server certificate.
func run(dir string, hosts []string, validity time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")

	ca, err := certgen.LoadCACredentials(caCert, caKey)
	if errors.Is(err, fs.ErrNotExist) {
		ca, err = newCA(caCert, caKey)
	}
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := ca.GenerateServerCertificate(hosts, validity)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "server.crt"), certPEM, 0o644); err != nil {
		return fmt.Errorf("write server cert: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "server.key"), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write server key: %w", err)
	}
	return nil
}

func newCA(certPath, keyPath string) (*certgen.Authority, error) {
	ca, err := certgen.GenerateCA(caName, caValidity)
	if err != nil {
		return nil, err
	}
	keyPEM, err := ca.KeyPEM()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(certPath, ca.CertPEM(), 0o644); err != nil {
		return nil, fmt.Errorf("write ca cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("write ca key: %w", err)
	}
	return ca, nil
}
