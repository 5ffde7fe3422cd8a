package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu sync.Mutex

	// Active services
	linkableServer *zeroconf.Server
	primaryServer  *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config: config,
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// serverOptions returns zeroconf server options based on config.
func (a *MDNSAdvertiser) serverOptions() []zeroconf.ServerOption {
	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}
	return opts
}

// AdvertiseLinkable starts advertising a linkable service.
func (a *MDNSAdvertiser) AdvertiseLinkable(ctx context.Context, info *LinkableInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.linkableServer != nil {
		a.linkableServer.Shutdown()
		a.linkableServer = nil
	}

	// Build instance name: "DEVLINK-<fingerprint>"
	instanceName := LinkableInstanceName(info.Fingerprint)

	// Build TXT records
	txtStrings := TXTRecordsToStrings(EncodeLinkableTXT(info))

	// Determine port
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceTypeLinkable,
		Domain,
		port,
		txtStrings,
		a.getInterfaces(),
		a.serverOptions()...,
	)
	if err != nil {
		return fmt.Errorf("failed to register linkable service: %w", err)
	}

	a.linkableServer = server
	return nil
}

// StopLinkable stops advertising the linkable service.
func (a *MDNSAdvertiser) StopLinkable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.linkableServer != nil {
		a.linkableServer.Shutdown()
		a.linkableServer = nil
	}
	return nil
}

// AdvertisePrimary starts advertising a primary service.
func (a *MDNSAdvertiser) AdvertisePrimary(ctx context.Context, info *PrimaryInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.primaryServer != nil {
		a.primaryServer.Shutdown()
		a.primaryServer = nil
	}

	// Build instance name from the device name, falling back to the
	// fingerprint when no name is configured.
	instanceName := info.DeviceName
	if instanceName == "" {
		instanceName = info.DeviceID
	}
	if len(instanceName) > MaxInstanceNameLen {
		instanceName = instanceName[:MaxInstanceNameLen]
	}

	// Build TXT records
	txtStrings := TXTRecordsToStrings(EncodePrimaryTXT(info))

	// Determine port
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceTypePrimary,
		Domain,
		port,
		txtStrings,
		a.getInterfaces(),
		a.serverOptions()...,
	)
	if err != nil {
		return fmt.Errorf("failed to register primary service: %w", err)
	}

	a.primaryServer = server
	return nil
}

// UpdatePrimary updates TXT records for the primary service.
func (a *MDNSAdvertiser) UpdatePrimary(info *PrimaryInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.primaryServer == nil {
		return ErrNotFound
	}

	a.primaryServer.SetText(TXTRecordsToStrings(EncodePrimaryTXT(info)))
	return nil
}

// StopPrimary stops advertising the primary service.
func (a *MDNSAdvertiser) StopPrimary() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.primaryServer == nil {
		return ErrNotFound
	}

	a.primaryServer.Shutdown()
	a.primaryServer = nil
	return nil
}

// StopAll stops all advertisements.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.linkableServer != nil {
		a.linkableServer.Shutdown()
		a.linkableServer = nil
	}
	if a.primaryServer != nil {
		a.primaryServer.Shutdown()
		a.primaryServer = nil
	}
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{
		config: config,
	}, nil
}

// BrowseLinkable searches for devices awaiting provisioning.
// Services are aggregated by instance name - addresses from multiple
// interfaces are combined into a single entry. Removals are handled when
// interfaces disappear.
func (b *MDNSBrowser) BrowseLinkable(ctx context.Context) (<-chan *LinkableService, error) {
	out := make(chan *LinkableService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track services by instance name, aggregating addresses
		services := make(map[string]*LinkableService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := b.entryToLinkable(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					// Merge addresses into existing entry
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				} else {
					// New service - store and emit
					services[svc.InstanceName] = svc
					select {
					case out <- svc:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Remove addresses that came from this interface
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					// If no addresses remain, remove the service
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypeLinkable, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// BrowsePrimaries searches for primary devices.
// Services are aggregated by instance name - addresses from multiple
// interfaces are combined into a single entry.
func (b *MDNSBrowser) BrowsePrimaries(ctx context.Context) (<-chan *PrimaryService, error) {
	out := make(chan *PrimaryService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		services := make(map[string]*PrimaryService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := b.entryToPrimary(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				} else {
					services[svc.InstanceName] = svc
					select {
					case out <- svc:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypePrimary, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindByFingerprint searches for a specific linkable device.
func (b *MDNSBrowser) FindByFingerprint(ctx context.Context, fingerprint string) (*LinkableService, error) {
	results, err := b.BrowseLinkable(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if svc.Fingerprint == fingerprint {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToLinkable converts a zeroconf entry to LinkableService.
func (b *MDNSBrowser) entryToLinkable(entry *zeroconf.ServiceEntry) *LinkableService {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeLinkableTXT(txt)
	if err != nil {
		return nil
	}

	return &LinkableService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		Address:      info.Address,
		Fingerprint:  info.Fingerprint,
		DeviceName:   info.DeviceName,
		Brand:        info.Brand,
		Model:        info.Model,
	}
}

// entryToPrimary converts a zeroconf entry to PrimaryService.
func (b *MDNSBrowser) entryToPrimary(entry *zeroconf.ServiceEntry) *PrimaryService {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodePrimaryTXT(txt)
	if err != nil {
		return nil
	}

	return &PrimaryService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		DeviceID:     info.DeviceID,
		DeviceName:   info.DeviceName,
	}
}

// entryAddresses collects all resolved addresses from a zeroconf entry.
func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range found {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
