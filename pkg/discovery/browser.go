package discovery

import (
	"context"
	"time"
)

// Browser provides mDNS service browsing capabilities.
type Browser interface {
	// BrowseLinkable searches for devices awaiting provisioning.
	// The channel is closed when the context is cancelled.
	BrowseLinkable(ctx context.Context) (<-chan *LinkableService, error)

	// BrowsePrimaries searches for primary devices.
	BrowsePrimaries(ctx context.Context) (<-chan *PrimaryService, error)

	// FindByFingerprint searches for a specific linkable device.
	// Returns when found or when context is cancelled/timeout.
	FindByFingerprint(ctx context.Context, fingerprint string) (*LinkableService, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for browse operations.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// FilterFunc is a function that filters linkable browse results.
type FilterFunc func(*LinkableService) bool

// FilterByFingerprint returns a filter that matches a device with the given
// key fingerprint.
func FilterByFingerprint(fingerprint string) FilterFunc {
	return func(svc *LinkableService) bool {
		return svc.Fingerprint == fingerprint
	}
}

// FilterByBrand returns a filter that matches devices with the given brand.
func FilterByBrand(brand string) FilterFunc {
	return func(svc *LinkableService) bool {
		return svc.Brand == brand
	}
}

// FilterBrowseResults filters a channel of linkable services.
func FilterBrowseResults(in <-chan *LinkableService, filter FilterFunc) <-chan *LinkableService {
	out := make(chan *LinkableService)
	go func() {
		defer close(out)
		for svc := range in {
			if filter(svc) {
				out <- svc
			}
		}
	}()
	return out
}

// ServiceEntry is raw mDNS service entry data.
// This is a helper for Browser implementations.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToLinkableService converts a ServiceEntry to LinkableService.
func (e *ServiceEntry) ToLinkableService() (*LinkableService, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodeLinkableTXT(txt)
	if err != nil {
		return nil, err
	}

	return &LinkableService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Address:      info.Address,
		Fingerprint:  info.Fingerprint,
		DeviceName:   info.DeviceName,
		Brand:        info.Brand,
		Model:        info.Model,
	}, nil
}

// ToPrimaryService converts a ServiceEntry to PrimaryService.
func (e *ServiceEntry) ToPrimaryService() (*PrimaryService, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodePrimaryTXT(txt)
	if err != nil {
		return nil, err
	}

	return &PrimaryService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		DeviceID:     info.DeviceID,
		DeviceName:   info.DeviceName,
	}, nil
}
