package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/arserve/internal/certs"
	"github.com/wolfeidau/arserve/internal/logger"
	"github.com/wolfeidau/arserve/internal/server"
	"github.com/wolfeidau/arserve/internal/telemetry"
	"github.com/wolfeidau/arserve/internal/util"
)

// ServeConfig mirrors the serve flags that may come from a YAML/JSON config
// file instead. Pointer fields distinguish "unset" from a deliberate zero
// value (an empty redirectListen disables the listener).
type ServeConfig struct {
	Listen         string            `yaml:"listen" json:"listen"`
	RedirectListen *string           `yaml:"redirectListen" json:"redirectListen"`
	Webroot        string            `yaml:"webroot" json:"webroot"`
	Index          string            `yaml:"index" json:"index"`
	Cert           string            `yaml:"cert" json:"cert"`
	Key            string            `yaml:"key" json:"key"`
	AutoCert       *bool             `yaml:"autoCert" json:"autoCert"`
	Hosts          []string          `yaml:"hosts" json:"hosts"`
	MIMETypes      map[string]string `yaml:"mimeTypes" json:"mimeTypes"`
	CORSOrigins    []string          `yaml:"corsOrigins" json:"corsOrigins"`
	Gzip           *bool             `yaml:"gzip" json:"gzip"`
	ETag           *bool             `yaml:"etag" json:"etag"`
}

type ServeCmd struct {
	// Server configuration
	Listen         string `help:"HTTPS listen address" default:":8001" env:"ARSERVE_LISTEN"`
	RedirectListen string `help:"plaintext listen address answering 301s to the HTTPS listener, empty disables it" default:":8000" env:"ARSERVE_REDIRECT_LISTEN"`
	Webroot        string `help:"directory to serve" default:"." env:"ARSERVE_WEBROOT"`
	Index          string `help:"document served for the root path" default:"index.html" env:"ARSERVE_INDEX"`

	// TLS configuration
	Cert     string   `help:"path to TLS cert file" default:"cert.pem" env:"ARSERVE_TLS_CERT"`
	Key      string   `help:"path to TLS key file" default:"key.pem" env:"ARSERVE_TLS_KEY"`
	AutoCert bool     `help:"generate the certificate pair when missing or expiring" default:"true" env:"ARSERVE_AUTO_CERT"`
	Hosts    []string `help:"subject alternative names for generated certificates" default:"localhost,127.0.0.1,::1"`

	// Response configuration
	MIMETypes   map[string]string `help:"extension to content-type overrides"`
	CORSOrigins []string          `help:"allowed CORS origins" env:"ARSERVE_CORS_ORIGINS"`
	Gzip        bool              `help:"enable gzip compression" default:"false"`
	ETag        bool              `help:"send ETag validators" default:"false"`

	// Development and operational modes
	QR        bool   `help:"print a QR code for the demo URL" default:"false"`
	Telemetry bool   `help:"enable OpenTelemetry traces and metrics" default:"false" env:"ARSERVE_TELEMETRY"`
	Config    string `help:"YAML/JSON config file path"`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting arserve")

	// Load config from file if provided
	if s.Config != "" {
		if err := s.loadConfigFile(); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Setup telemetry if enabled
	if s.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "arserve", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	if s.AutoCert {
		result, err := certs.Ensure(ctx, certs.Options{
			CertFile: s.Cert,
			KeyFile:  s.Key,
			Hosts:    s.Hosts,
		})
		if err != nil {
			return err
		}
		telemetry.GetMetrics().RecordBootstrap(ctx, result.Method)
	}

	// A missing or malformed pair fails here, before any listener binds.
	pair := &certs.Certificates{CertFile: s.Cert, KeyFile: s.Key}
	tlsConfig, err := pair.TLSConfig()
	if err != nil {
		return err
	}

	srv := server.New(s.serverConfig(), tlsConfig)
	if err := srv.Listen(s.Listen, s.RedirectListen); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	if err := srv.WaitReady(ctx); err != nil {
		stop()
		<-errCh
		return err
	}

	s.displayURL(log, srv)

	return <-errCh
}

func (s *ServeCmd) serverConfig() server.Config {
	cfg := server.DefaultConfig()
	cfg.Webroot = s.Webroot
	cfg.Index = s.Index
	cfg.CORSOrigins = s.CORSOrigins
	cfg.Gzip = s.Gzip
	cfg.ETag = s.ETag

	// Overrides merge onto the default table rather than replacing it.
	for ext, ct := range s.MIMETypes {
		cfg.MIMETypes[strings.ToLower(strings.TrimPrefix(ext, "."))] = ct
	}

	return cfg
}

// displayURL prints the address a phone on the same network should open,
// with an optional QR code to save typing it.
func (s *ServeCmd) displayURL(log zerolog.Logger, srv *server.Server) {
	_, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		return
	}

	demoURL := util.HostPortURL("https", util.ListenHost(s.Listen), port) + "/"

	fmt.Printf("Serving %s on %s (accept the self-signed certificate on the device)\n", s.Webroot, demoURL)

	if s.QR {
		qr, err := qrcode.New(demoURL, qrcode.Medium)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to render QR code")
			return
		}
		fmt.Println(qr.ToSmallString(false))
	}
}

func (s *ServeCmd) loadConfigFile() error {
	data, err := os.ReadFile(s.Config)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config ServeConfig

	// Determine file format by extension
	if strings.HasSuffix(strings.ToLower(s.Config), ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// Config file values take precedence over flags
	if config.Listen != "" {
		s.Listen = config.Listen
	}
	if config.RedirectListen != nil {
		s.RedirectListen = *config.RedirectListen
	}
	if config.Webroot != "" {
		s.Webroot = config.Webroot
	}
	if config.Index != "" {
		s.Index = config.Index
	}
	if config.Cert != "" {
		s.Cert = config.Cert
	}
	if config.Key != "" {
		s.Key = config.Key
	}
	if config.AutoCert != nil {
		s.AutoCert = *config.AutoCert
	}
	if len(config.Hosts) > 0 {
		s.Hosts = config.Hosts
	}
	if len(config.MIMETypes) > 0 {
		if s.MIMETypes == nil {
			s.MIMETypes = map[string]string{}
		}
		maps.Copy(s.MIMETypes, config.MIMETypes)
	}
	if len(config.CORSOrigins) > 0 {
		s.CORSOrigins = config.CORSOrigins
	}
	if config.Gzip != nil {
		s.Gzip = *config.Gzip
	}
	if config.ETag != nil {
		s.ETag = *config.ETag
	}

	return nil
}
