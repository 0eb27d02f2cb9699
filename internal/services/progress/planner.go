package progress

import (
	"math/rand"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
)

type Rand interface {
	Intn(n int) int
}

// PlannerConfig holds how long a shipment sits in each status before the
// worker advances it. Express and overnight tiers divide the delays so faster
// services move through the chain sooner.
type PlannerConfig struct {
	PendingDelay        time.Duration // default: 30 minutes
	PickedUpDelay       time.Duration // default: 60 minutes
	InTransitMinDelay   time.Duration // default: 60 minutes
	InTransitMaxDelay   time.Duration // default: 180 minutes
	OutForDeliveryDelay time.Duration // default: 45 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		PendingDelay:        30 * time.Minute,
		PickedUpDelay:       60 * time.Minute,
		InTransitMinDelay:   60 * time.Minute,
		InTransitMaxDelay:   180 * time.Minute,
		OutForDeliveryDelay: 45 * time.Minute,
	}
}

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.PendingDelay <= 0 {
		cfg.PendingDelay = def.PendingDelay
	}
	if cfg.PickedUpDelay <= 0 {
		cfg.PickedUpDelay = def.PickedUpDelay
	}
	if cfg.InTransitMinDelay <= 0 {
		cfg.InTransitMinDelay = def.InTransitMinDelay
	}
	if cfg.InTransitMaxDelay <= 0 {
		cfg.InTransitMaxDelay = def.InTransitMaxDelay
	}
	if cfg.InTransitMaxDelay < cfg.InTransitMinDelay {
		cfg.InTransitMaxDelay = cfg.InTransitMinDelay
	}
	if cfg.OutForDeliveryDelay <= 0 {
		cfg.OutForDeliveryDelay = def.OutForDeliveryDelay
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

// AdvanceDelay returns how long the shipment stays in status before the next
// step, divided by the tier's speed multiplier.
func (p *Planner) AdvanceDelay(status, serviceType string) time.Duration {
	var d time.Duration
	switch status {
	case models.StatusPending:
		d = p.cfg.PendingDelay
	case models.StatusPickedUp:
		d = p.cfg.PickedUpDelay
	case models.StatusInTransit:
		d = p.transitDelay()
	case models.StatusOutForDelivery:
		d = p.cfg.OutForDeliveryDelay
	default:
		return 0
	}

	div := models.ServiceMultiplier(serviceType)
	if div <= 0 {
		div = 1
	}
	return d / time.Duration(div)
}

func (p *Planner) transitDelay() time.Duration {
	min := p.cfg.InTransitMinDelay
	max := p.cfg.InTransitMaxDelay
	if max == min {
		return min
	}
	secMin := int(min.Seconds())
	secMax := int(max.Seconds())
	if secMax < secMin {
		secMax = secMin
	}
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}
