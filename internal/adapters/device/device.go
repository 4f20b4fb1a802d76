// Package device tracks where Active artifacts are placed.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
)

// Location is where an artifact currently lives.
type Location string

const (
	// LocationHost is host memory, the Staged tier.
	LocationHost Location = "host"
	// LocationAccelerator is accelerator memory.
	LocationAccelerator Location = "accelerator"
)

var errNotPromoted = zerr.New("artifact is not on the accelerator")

// slot identifies one loaded generation of a key. A retired artifact may still be
// placed while its replacement is promoted under the same key.
type slot struct {
	key    domain.CanonicalKey
	digest uint64
}

// Placement implements ports.Device.
// In host mode promotions are recorded but no bytes move.
type Placement struct {
	mode   domain.Device
	logger ports.Logger

	mu       sync.Mutex
	promoted map[slot]int64
	bytes    int64
	peak     int64
}

// New returns a Placement for mode.
func New(mode domain.Device, logger ports.Logger) (*Placement, error) {
	switch mode {
	case domain.DeviceHost, domain.DeviceAccelerator:
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidDevice, "open device"), "device", string(mode))
	}
	return &Placement{
		mode:     mode,
		logger:   logger,
		promoted: make(map[slot]int64),
	}, nil
}

// Mode returns the device mode.
func (p *Placement) Mode() domain.Device {
	return p.mode
}

// Promote places artifact on the accelerator. Promoting a placed key is a no-op.
func (p *Placement) Promote(ctx context.Context, key domain.CanonicalKey, artifact domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := slot{key: key, digest: artifact.Digest}
	if _, ok := p.promoted[s]; ok {
		return nil
	}
	p.promoted[s] = artifact.Size
	if p.mode == domain.DeviceAccelerator {
		p.bytes += artifact.Size
		p.peak = max(p.peak, p.bytes)
		p.logger.Debug(fmt.Sprintf("promoted %s to accelerator (%s in use)", key, humanize.IBytes(uint64(p.bytes))))
	}
	return nil
}

// Demote moves artifact back to host memory.
func (p *Placement) Demote(ctx context.Context, key domain.CanonicalKey, artifact domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := slot{key: key, digest: artifact.Digest}
	if _, ok := p.promoted[s]; !ok {
		return zerr.With(errNotPromoted, "key", key.String())
	}
	p.dropLocked(s)
	if p.mode == domain.DeviceAccelerator {
		p.logger.Debug(fmt.Sprintf("demoted %s to host", key))
	}
	return nil
}

// Free forgets artifact. Other generations of key keep their placement.
func (p *Placement) Free(_ context.Context, key domain.CanonicalKey, artifact domain.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(slot{key: key, digest: artifact.Digest})
}

func (p *Placement) dropLocked(s slot) {
	size, ok := p.promoted[s]
	if !ok {
		return
	}
	delete(p.promoted, s)
	if p.mode == domain.DeviceAccelerator {
		p.bytes -= size
	}
}

// Where reports the location of key. Unknown keys are on the host.
func (p *Placement) Where(key domain.CanonicalKey) Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != domain.DeviceAccelerator {
		return LocationHost
	}
	for s := range p.promoted {
		if s.key == key {
			return LocationAccelerator
		}
	}
	return LocationHost
}

// AcceleratorBytes reports the bytes currently placed on the accelerator and the high-water mark.
func (p *Placement) AcceleratorBytes() (current, peak int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes, p.peak
}
