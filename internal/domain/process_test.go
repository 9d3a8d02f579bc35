package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessAdvance(t *testing.T) {
	t.Run("allows forward movement", func(t *testing.T) {
		p := &Process{Step: StepUpload}
		ok := p.Advance(StepMetadataExtraction, time.Now())
		assert.True(t, ok)
		assert.Equal(t, StepMetadataExtraction, p.Step)
	})

	t.Run("allows staying in place", func(t *testing.T) {
		p := &Process{Step: StepValidation}
		assert.True(t, p.CanAdvanceTo(StepValidation))
	})

	t.Run("refuses regression", func(t *testing.T) {
		p := &Process{Step: StepValidation}
		before := p.Step
		ok := p.Advance(StepDatabaseSearch, time.Now())
		assert.False(t, ok)
		assert.Equal(t, before, p.Step)
	})

	t.Run("refuses unknown steps", func(t *testing.T) {
		p := &Process{Step: StepUpload}
		assert.False(t, p.CanAdvanceTo(Step("NOT_A_STEP")))
	})
}
