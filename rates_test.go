package epinet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: numExposed=1, numInfectious=2 -> states 0 (exposed),
// 1 and 2 (infectious), 3 (recovered). infectiousStart=1, recoveredState=3.
func newTestRateState() *rateState {
	return newRateState(5, 1, 2, 0.5, 0.3)
}

func TestRateStateEnterAndProgress(t *testing.T) {
	rs := newTestRateState()

	rs.enterState(0)
	assert.InDelta(t, 0.5, rs.sigmaMove, 1e-9)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, rs.cumMove)

	newState := rs.progressState(0, 0)
	assert.Equal(t, 1, newState)
	assert.InDelta(t, 0.3, rs.sigmaMove, 1e-9)
	assert.InDelta(t, 0.0, rs.cumMove[0], 1e-9)
	assert.InDelta(t, 0.3, rs.cumMove[1], 1e-9)
	assert.InDelta(t, 0.3, rs.cumMove[3], 1e-9)
}

func TestRateStateActivateInfectiousThenProgressThenRecover(t *testing.T) {
	rs := newTestRateState()
	rs.enterState(0)
	rs.progressState(0, 0) // agent 0 now in state 1 (first infectious substage)

	rs.activateInfectious(0, 0.9)
	assert.InDelta(t, 0.9, rs.sigmaInf, 1e-9)
	assert.InDelta(t, 0.9, rs.perAgentInfSum[0], 1e-9)
	assert.Equal(t, []float64{0, 0.9, 0.9, 0.9}, rs.cumInf)

	newState := rs.progressState(0, 1) // state 1 -> 2, both infectious substages, move rate unchanged
	assert.Equal(t, 2, newState)
	assert.InDelta(t, 0.3, rs.sigmaMove, 1e-9)
	assert.InDelta(t, 0.0, rs.cumInf[1], 1e-9) // agent0 no longer counted at index 1
	assert.InDelta(t, 0.9, rs.cumInf[2], 1e-9) // still counted at its current state and above
	assert.InDelta(t, 0.9, rs.perAgentInfSum[0], 1e-9)

	rs.recoverAgent(0)
	assert.InDelta(t, 0.0, rs.sigmaInf, 1e-9)
	assert.InDelta(t, 0.0, rs.perAgentInfSum[0], 1e-9)
	assert.InDelta(t, 0.0, rs.cumInf[3], 1e-9)
	assert.InDelta(t, 0.9, rs.cumInf[2], 1e-9) // untouched, belongs to index strictly before recoveredState
}

func TestRateStateRecoverAgentNoOpWhenNotInfectious(t *testing.T) {
	rs := newTestRateState()
	rs.recoverAgent(3) // never activated; perAgentInfSum[3] == 0
	assert.InDelta(t, 0.0, rs.sigmaInf, 1e-9)
}

func TestRateStateRemoveEdgeRate(t *testing.T) {
	rs := newTestRateState()
	rs.enterState(0)
	rs.progressState(0, 0)
	rs.activateInfectious(0, 1.0) // two edges contributing 0.6 and 0.4

	rs.removeEdgeRate(0, 0.6, 1)
	assert.InDelta(t, 0.4, rs.sigmaInf, 1e-9)
	assert.InDelta(t, 0.4, rs.perAgentInfSum[0], 1e-9)
	assert.InDelta(t, 0.4, rs.cumInf[1], 1e-9)
	assert.InDelta(t, 0.4, rs.cumInf[3], 1e-9)
}

func TestRateStateRemoveEdgeRateNoOpOnZero(t *testing.T) {
	rs := newTestRateState()
	before := rs.sigmaInf
	rs.removeEdgeRate(0, 0, 1)
	assert.Equal(t, before, rs.sigmaInf)
}

func TestClampOrFailWithinWindow(t *testing.T) {
	rs := newTestRateState()
	rs.sigmaMove = -0.0005
	rs.sigmaInf = -0.0001
	require.NoError(t, rs.clampOrFail())
	assert.Equal(t, 0.0, rs.sigmaMove)
	assert.Equal(t, 0.0, rs.sigmaInf)
}

func TestClampOrFailBeyondWindow(t *testing.T) {
	rs := newTestRateState()
	rs.sigmaMove = -0.01
	err := rs.clampOrFail()
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestLambdaIsSum(t *testing.T) {
	rs := newTestRateState()
	rs.sigmaMove = 1.2
	rs.sigmaInf = 3.4
	assert.InDelta(t, 4.6, rs.Lambda(), 1e-9)
}
