package model

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageSpec() StorageSpec {
	return StorageSpec{
		EnergyCapacityKWh:   10,
		MaxChargeCRate:      1,
		MaxDischargeCRate:   1,
		RoundTripEfficiency: 0.81,
		InitialSOC:          0.5,
		Cost:                AssetCost{CapitalCost: 550, ReplacementCost: 550, OMCost: 10, LifetimeYears: 15},
	}
}

func TestStorageTransferCharge(t *testing.T) {
	bank := StorageBank{Spec: testStorageSpec(), Count: 2}
	require.InDelta(t, 20, bank.CapacityKWh(), 1e-9)
	require.InDelta(t, 10, bank.InitialEnergyKWh(), 1e-9)

	tr := bank.Transfer(10, -5, 1)
	assert.InDelta(t, -5, tr.PowerKW, 1e-9)
	assert.InDelta(t, 5, tr.EnergyInKWh, 1e-9)
	assert.InDelta(t, 14.5, tr.SOCEndKWh, 1e-9)
	assert.Equal(t, ActionCharge, ClassifyStep(tr, 0, 0))
}

func TestStorageTransferChargeLimitedByCapacity(t *testing.T) {
	bank := StorageBank{Spec: testStorageSpec(), Count: 2}

	tr := bank.Transfer(19.1, -5, 1)
	assert.InDelta(t, 1, tr.EnergyInKWh, 1e-9)
	assert.InDelta(t, 20, tr.SOCEndKWh, 1e-9)

	full := bank.Transfer(20, -5, 1)
	assert.Zero(t, full.PowerKW)
	assert.InDelta(t, 20, full.SOCEndKWh, 1e-9)
}

func TestStorageTransferDischarge(t *testing.T) {
	bank := StorageBank{Spec: testStorageSpec(), Count: 2}

	tr := bank.Transfer(10, 5, 1)
	assert.InDelta(t, 5, tr.EnergyOutKWh, 1e-9)
	assert.InDelta(t, 10-5/0.9, tr.SOCEndKWh, 1e-9)
	assert.Equal(t, ActionDischarge, ClassifyStep(tr, 0, 0))

	drained := bank.Transfer(2, 50, 1)
	assert.InDelta(t, 1.8, drained.EnergyOutKWh, 1e-9)
	assert.InDelta(t, 0, drained.SOCEndKWh, 1e-9)
}

func TestStorageTransferRespectsCRateAndMinSOC(t *testing.T) {
	spec := testStorageSpec()
	spec.MaxDischargeCRate = 0.25
	spec.MinSOC = 0.2
	bank := StorageBank{Spec: spec, Count: 1}

	tr := bank.Transfer(10, 100, 1)
	assert.InDelta(t, 2.5, tr.PowerKW, 1e-9)

	floor := bank.Transfer(2, 100, 1)
	assert.Zero(t, floor.EnergyOutKWh)
	assert.InDelta(t, 2, floor.SOCEndKWh, 1e-9)
}

func TestStorageTransferZeroUnits(t *testing.T) {
	bank := StorageBank{Spec: testStorageSpec(), Count: 0}
	tr := bank.Transfer(0, 40, 1)
	assert.Zero(t, tr.PowerKW)
	assert.Zero(t, tr.SOCEndKWh)
	assert.Equal(t, ActionIdle, ClassifyStep(tr, 0, 0))
	assert.Equal(t, ActionShortage, ClassifyStep(tr, 0, 40))
}

func TestClassifyStepPrecedence(t *testing.T) {
	charging := Transfer{PowerKW: -3}
	assert.Equal(t, ActionCharge, ClassifyStep(charging, 0, 0))
	assert.Equal(t, ActionCurtail, ClassifyStep(charging, 1, 0))
	assert.Equal(t, ActionShortage, ClassifyStep(Transfer{PowerKW: 2}, 0, 0.5))
	assert.Equal(t, ActionShortage, ClassifyStep(Transfer{}, 1, 0.5))
}

func TestStorageTransferKeepsSOCInBounds(t *testing.T) {
	bank := StorageBank{Spec: testStorageSpec(), Count: 3}
	rng := rand.New(rand.NewPCG(7, 11))

	soc := bank.InitialEnergyKWh()
	for i := 0; i < 2000; i++ {
		req := (rng.Float64()*2 - 1) * 60
		tr := bank.Transfer(soc, req, 0.5)
		require.GreaterOrEqual(t, tr.SOCEndKWh, 0.0)
		require.LessOrEqual(t, tr.SOCEndKWh, bank.CapacityKWh())
		if req > 0 {
			require.LessOrEqual(t, tr.PowerKW, req+1e-9)
		} else {
			require.GreaterOrEqual(t, tr.PowerKW, req-1e-9)
		}
		soc = tr.SOCEndKWh
	}
}

func TestStorageSpecValidate(t *testing.T) {
	spec := testStorageSpec()
	require.NoError(t, spec.Validate())

	bad := spec
	bad.RoundTripEfficiency = 1.2
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSpec)

	bad = spec
	bad.EnergyCapacityKWh = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSpec)

	bad = spec
	bad.Cost.LifetimeYears = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSpec)
}
