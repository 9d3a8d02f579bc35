package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchStatusAllTerminal(t *testing.T) {
	now := time.Now()

	t.Run("not terminal while a source is still searching", func(t *testing.T) {
		s := NewSearchStatus("p1", []string{"PUBMED", "ELSEVIER"}, now)
		s.Progress["PUBMED"].State = SourceCompleted
		s.Progress["ELSEVIER"].State = SourceSearching
		assert.False(t, s.AllTerminal())
	})

	t.Run("terminal once every slot is completed or errored", func(t *testing.T) {
		s := NewSearchStatus("p1", []string{"PUBMED", "ELSEVIER"}, now)
		s.Progress["PUBMED"].State = SourceCompleted
		s.Progress["ELSEVIER"].State = SourceError
		assert.True(t, s.AllTerminal())
	})

	t.Run("empty source list is trivially terminal", func(t *testing.T) {
		s := NewSearchStatus("p1", nil, now)
		assert.True(t, s.AllTerminal())
	})
}
