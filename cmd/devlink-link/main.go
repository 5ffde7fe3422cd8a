// Command devlink-link is a reference DEVLINK linking client.
//
// It opens a provisioning socket to a DEVLINK endpoint, waits for the
// ephemeral address and the encrypted provisioning envelope, and renders
// the provisioning URI a primary device would scan. With -announce it also
// advertises the linking attempt on the local network via mDNS.
//
// Usage:
//
//	devlink-link [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-endpoint string    Provisioning WebSocket URL
//	-name string        Device name for mDNS announcements
//	-protocol-log string  Write protocol events to a .dlog file
//	-announce           Advertise the linking attempt via mDNS
//	-interactive        Enable interactive command mode
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Link against a local endpoint with interactive mode
//	devlink-link -endpoint wss://localhost:8443/v1/provisioning/ -interactive
//
//	# Link with protocol logging and mDNS announcements
//	devlink-link -config devlink.yaml -protocol-log link.dlog -announce
//
// Interactive Commands:
//
//	connect     - Open the provisioning socket
//	disconnect  - Close the provisioning socket
//	state       - Show connection state
//	uri         - Show the provisioning URI (QR payload)
//	address     - Show the assigned provisioning address
//	message     - Decrypt and show the received envelope
//	status      - Show session status
//	quit        - Exit
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/devlink-protocol/devlink-go/cmd/devlink-link/interactive"
	"github.com/devlink-protocol/devlink-go/pkg/discovery"
	"github.com/devlink-protocol/devlink-go/pkg/log"
	"github.com/devlink-protocol/devlink-go/pkg/provisioning"
)

var (
	configFile      = flag.String("config", "", "Configuration file path (YAML)")
	endpoint        = flag.String("endpoint", "", "Provisioning WebSocket URL")
	deviceName      = flag.String("name", "DEVLINK Client", "Device name for mDNS announcements")
	protocolLog     = flag.String("protocol-log", "", "Write protocol events to a .dlog file")
	announce        = flag.Bool("announce", false, "Advertise the linking attempt via mDNS")
	interactiveMode = flag.Bool("interactive", false, "Enable interactive command mode")
	logLevel        = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	setupLogging(*logLevel)

	stdlog.Println("DEVLINK Reference Linking Client")
	stdlog.Println("================================")

	config, err := loadConfig()
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}
	stdlog.Printf("Endpoint: %s", config.Endpoint)

	// Set up protocol logging if requested
	var protocolLogger *log.FileLogger
	if *protocolLog != "" {
		protocolLogger, err = log.NewFileLogger(*protocolLog)
		if err != nil {
			stdlog.Fatalf("Failed to create protocol logger: %v", err)
		}
		defer protocolLogger.Close()
		stdlog.Printf("Protocol logging to: %s", *protocolLog)
		config.Logger = protocolLogger
	}

	session, err := newLinkSession(config, *deviceName)
	if err != nil {
		stdlog.Fatalf("Failed to create link session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *announce {
		if err := session.announce(ctx); err != nil {
			stdlog.Printf("Warning: mDNS announcement failed: %v", err)
		} else {
			stdlog.Println("Announcing linking attempt via mDNS")
		}
	}

	if *interactiveMode {
		ic, err := interactive.New(session)
		if err != nil {
			stdlog.Fatalf("Failed to create interactive client: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		stdlog.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	} else {
		// Non-interactive: connect immediately and report events as they come.
		if err := session.Connect(ctx); err != nil {
			stdlog.Fatalf("Failed to connect: %v", err)
		}
		stdlog.Println("Connected, waiting for provisioning...")
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	stdlog.Println("Shutting down...")
	session.Close()
	stdlog.Println("Goodbye!")
}

// loadConfig builds the socket config from the config file and flags.
// Flags override file values.
func loadConfig() (provisioning.Config, error) {
	config := provisioning.DefaultConfig()

	if *configFile != "" {
		loaded, err := provisioning.LoadConfig(*configFile)
		if err != nil {
			return provisioning.Config{}, err
		}
		config = loaded
	}
	if *endpoint != "" {
		config.Endpoint = *endpoint
	}

	if err := config.Validate(); err != nil {
		return provisioning.Config{}, err
	}
	return config, nil
}

func setupLogging(level string) {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	switch level {
	case "debug":
		stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile)
	case "warn", "error":
		stdlog.SetFlags(stdlog.Ltime)
	}
}

// announce advertises the linking attempt on the local network. It requires
// an assigned provisioning address, so it retries from the delegate once the
// address arrives when called before Connect.
func (s *linkSession) announce(ctx context.Context) error {
	advertiser, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.announcer = discovery.NewAnnouncer(advertiser)
	s.announceCtx = ctx
	address := s.deviceID
	s.mu.Unlock()

	if address == "" {
		// Deferred until OnDeviceID fires.
		return nil
	}
	return s.openLinkingWindow(ctx, address)
}

func (s *linkSession) openLinkingWindow(ctx context.Context, address string) error {
	s.mu.Lock()
	announcer := s.announcer
	s.mu.Unlock()
	if announcer == nil {
		return nil
	}

	return announcer.OpenLinkingWindow(ctx, &discovery.LinkableInfo{
		Address:     address,
		Fingerprint: discovery.KeyFingerprint(s.keyPair.PublicKey()),
		DeviceName:  s.deviceName,
	})
}
