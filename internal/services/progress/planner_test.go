package progress

import (
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

func TestPlanner_AdvanceDelay_TierScaling(t *testing.T) {
	p := NewPlanner(PlannerConfig{PendingDelay: 30 * time.Minute}, nil)

	require.Equal(t, 30*time.Minute, p.AdvanceDelay(models.StatusPending, models.ServiceStandard))
	require.Equal(t, 15*time.Minute, p.AdvanceDelay(models.StatusPending, models.ServiceExpress))
	require.Equal(t, 10*time.Minute, p.AdvanceDelay(models.StatusPending, models.ServiceOvernight))
}

func TestPlanner_AdvanceDelay_TransitRange(t *testing.T) {
	cfg := PlannerConfig{InTransitMinDelay: time.Minute, InTransitMaxDelay: 3 * time.Minute}

	p := NewPlanner(cfg, fixedRand{n: 0})
	require.Equal(t, time.Minute, p.AdvanceDelay(models.StatusInTransit, models.ServiceStandard))

	p = NewPlanner(cfg, fixedRand{n: 120})
	require.Equal(t, 3*time.Minute, p.AdvanceDelay(models.StatusInTransit, models.ServiceStandard))
}

func TestPlanner_AdvanceDelay_TerminalZero(t *testing.T) {
	p := NewPlanner(PlannerConfig{}, nil)
	require.Equal(t, time.Duration(0), p.AdvanceDelay(models.StatusDelivered, models.ServiceStandard))
	require.Equal(t, time.Duration(0), p.AdvanceDelay(models.StatusCancelled, models.ServiceExpress))
}

func TestPlanner_Defaults(t *testing.T) {
	p := NewPlanner(PlannerConfig{}, nil)
	require.Equal(t, 30*time.Minute, p.cfg.PendingDelay)
	require.Equal(t, 60*time.Minute, p.cfg.PickedUpDelay)
	require.Equal(t, 45*time.Minute, p.cfg.OutForDeliveryDelay)

	// max clamped up to min
	p = NewPlanner(PlannerConfig{InTransitMinDelay: 10 * time.Minute, InTransitMaxDelay: 5 * time.Minute}, nil)
	require.Equal(t, 10*time.Minute, p.cfg.InTransitMaxDelay)
}
