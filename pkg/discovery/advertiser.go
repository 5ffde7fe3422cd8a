package discovery

import (
	"context"
	"sync"
	"time"
)

// Advertiser provides mDNS service advertising capabilities.
type Advertiser interface {
	// AdvertiseLinkable starts advertising a linkable service.
	// The service will be advertised until StopLinkable is called or
	// the linking window expires.
	AdvertiseLinkable(ctx context.Context, info *LinkableInfo) error

	// StopLinkable stops advertising the linkable service.
	StopLinkable() error

	// AdvertisePrimary starts advertising a primary service.
	AdvertisePrimary(ctx context.Context, info *PrimaryInfo) error

	// UpdatePrimary updates TXT records for the primary service.
	UpdatePrimary(info *PrimaryInfo) error

	// StopPrimary stops advertising the primary service.
	StopPrimary() error

	// StopAll stops all advertisements.
	StopAll()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}

// Announcer manages the device's announcement state machine. A linking
// device opens a linkable window while its provisioning socket is up; a
// primary announces itself for as long as it can deliver envelopes.
type Announcer struct {
	mu sync.RWMutex

	state      AnnounceState
	advertiser Advertiser

	// Linkable info (used while the linking window is open)
	linkableInfo *LinkableInfo

	// Primary info (for primary devices)
	primaryInfo *PrimaryInfo

	// Linking window timer
	windowDuration time.Duration
	windowTimer    *time.Timer

	// Callbacks
	onStateChange func(old, new AnnounceState)
	onWindowClose func()
}

// NewAnnouncer creates a new announcer.
func NewAnnouncer(advertiser Advertiser) *Announcer {
	return &Announcer{
		state:          AnnounceIdle,
		advertiser:     advertiser,
		windowDuration: LinkingWindowDuration,
	}
}

// State returns the current announcement state.
func (a *Announcer) State() AnnounceState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// OnStateChange sets a callback for state changes.
func (a *Announcer) OnStateChange(fn func(old, new AnnounceState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = fn
}

// OnWindowClose sets a callback invoked when the linking window expires
// without user action.
func (a *Announcer) OnWindowClose(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onWindowClose = fn
}

// SetWindowDuration overrides the linking window duration.
func (a *Announcer) SetWindowDuration(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windowDuration = d
}

// OpenLinkingWindow starts advertising the linkable service. The
// advertisement is automatically withdrawn when the window expires.
func (a *Announcer) OpenLinkingWindow(ctx context.Context, info *LinkableInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := info.Validate(); err != nil {
		return err
	}

	if err := a.advertiser.AdvertiseLinkable(ctx, info); err != nil {
		return err
	}
	a.linkableInfo = info

	if a.windowTimer != nil {
		a.windowTimer.Stop()
	}
	a.windowTimer = time.AfterFunc(a.windowDuration, a.windowExpired)

	a.setStateLocked(AnnounceLinkable)
	return nil
}

// CloseLinkingWindow withdraws the linkable advertisement. Call this when
// provisioning completes or the user cancels.
func (a *Announcer) CloseLinkingWindow() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLinkingWindowLocked()
}

// windowExpired runs when the linking window times out.
func (a *Announcer) windowExpired() {
	a.mu.Lock()
	err := a.closeLinkingWindowLocked()
	fn := a.onWindowClose
	a.mu.Unlock()

	if err == nil && fn != nil {
		fn()
	}
}

func (a *Announcer) closeLinkingWindowLocked() error {
	if a.windowTimer != nil {
		a.windowTimer.Stop()
		a.windowTimer = nil
	}

	if err := a.advertiser.StopLinkable(); err != nil {
		return err
	}
	a.linkableInfo = nil

	if a.primaryInfo != nil {
		a.setStateLocked(AnnouncePrimary)
	} else {
		a.setStateLocked(AnnounceIdle)
	}
	return nil
}

// AnnouncePrimaryDevice starts advertising the primary service.
func (a *Announcer) AnnouncePrimaryDevice(ctx context.Context, info *PrimaryInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := info.Validate(); err != nil {
		return err
	}

	if err := a.advertiser.AdvertisePrimary(ctx, info); err != nil {
		return err
	}
	a.primaryInfo = info

	if a.state == AnnounceIdle {
		a.setStateLocked(AnnouncePrimary)
	}
	return nil
}

// WithdrawPrimaryDevice stops advertising the primary service.
func (a *Announcer) WithdrawPrimaryDevice() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.primaryInfo == nil {
		return ErrNotFound
	}
	if err := a.advertiser.StopPrimary(); err != nil {
		return err
	}
	a.primaryInfo = nil

	if a.state == AnnouncePrimary {
		a.setStateLocked(AnnounceIdle)
	}
	return nil
}

// Stop stops all advertising.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.windowTimer != nil {
		a.windowTimer.Stop()
		a.windowTimer = nil
	}

	a.advertiser.StopAll()
	a.linkableInfo = nil
	a.primaryInfo = nil

	a.setStateLocked(AnnounceIdle)
}

// setStateLocked updates the state and fires the callback. Caller holds mu.
func (a *Announcer) setStateLocked(next AnnounceState) {
	old := a.state
	if old == next {
		return
	}
	a.state = next
	if a.onStateChange != nil {
		a.onStateChange(old, next)
	}
}
