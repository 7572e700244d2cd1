package epinet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminationCheckSaturation(t *testing.T) {
	tc := terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 100}
	assert.Equal(t, OutcomeCompleted, tc.evaluate(91, 100, 5, 10.0, 0))
}

func TestTerminationCheckExtinction(t *testing.T) {
	tc := terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 100}
	assert.Equal(t, OutcomeExtinct, tc.evaluate(5, 100, 5, 1e-5, 0))
}

func TestTerminationCheckTimeout(t *testing.T) {
	tc := terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 100}
	assert.Equal(t, OutcomeTimeout, tc.evaluate(5, 100, 101, 1.0, 0))
}

func TestTerminationCheckRunning(t *testing.T) {
	tc := terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 100}
	assert.Equal(t, OutcomeRunning, tc.evaluate(5, 100, 5, 1.0, 0))
}

func TestTerminationCheckDayMax(t *testing.T) {
	tc := terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 100, dayMax: 30}
	assert.Equal(t, OutcomeTimeout, tc.evaluate(5, 100, 5, 1.0, 30))
	assert.Equal(t, OutcomeRunning, tc.evaluate(5, 100, 5, 1.0, 29.9))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "running", OutcomeRunning.String())
	assert.Equal(t, "extinct", OutcomeExtinct.String())
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "timeout", OutcomeTimeout.String())
}

func TestDefaultTerminationCheckMatchesSpecConstants(t *testing.T) {
	tc := defaultTerminationCheck()
	assert.Equal(t, 1e-4, tc.lambdaFloor)
	assert.Equal(t, 10, tc.saturationMargin)
	assert.Equal(t, 100_000_000, tc.maxSteps)
}
