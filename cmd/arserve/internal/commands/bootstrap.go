package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/arserve/internal/certs"
	"github.com/wolfeidau/arserve/internal/logger"
	"github.com/wolfeidau/arserve/internal/telemetry"
)

type BootstrapCmd struct {
	Cert         string   `help:"path to write the certificate" default:"cert.pem" env:"ARSERVE_TLS_CERT"`
	Key          string   `help:"path to write the private key" default:"key.pem" env:"ARSERVE_TLS_KEY"`
	CommonName   string   `help:"certificate common name" default:"localhost"`
	Organization string   `help:"certificate organization" default:"arserve dev"`
	Hosts        []string `help:"subject alternative names" default:"localhost,127.0.0.1,::1"`
	Days         int      `help:"validity period in days" default:"365"`
	OpenSSL      string   `help:"openssl binary preferred for generation" default:"openssl"`
	Force        bool     `help:"regenerate even when a valid pair exists" default:"false"`
}

func (b *BootstrapCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Setup(globals.Debug)

	result, err := certs.Ensure(ctx, certs.Options{
		CertFile:     b.Cert,
		KeyFile:      b.Key,
		CommonName:   b.CommonName,
		Organization: b.Organization,
		Hosts:        b.Hosts,
		Days:         b.Days,
		OpenSSLPath:  b.OpenSSL,
		Force:        b.Force,
	})
	if err != nil {
		return err
	}

	telemetry.GetMetrics().RecordBootstrap(ctx, result.Method)

	if result.Reused {
		fmt.Printf("Existing certificate pair is valid until %s\n", result.NotAfter.Format(time.RFC3339))
	} else {
		fmt.Printf("Certificate pair written (%s), valid until %s\n", result.Method, result.NotAfter.Format(time.RFC3339))
	}
	fmt.Printf("Fingerprint: %s\n", result.Fingerprint)

	return nil
}
