package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vastra_back_end/internal/models"
)

func TestMemoryRecorder(t *testing.T) {
	m := NewMemory()
	var r Recorder = m

	r.Record(models.AuditLog{Action: ActionOrderCreate, ResourceID: "o1", Success: true})
	r.Record(models.AuditLog{Action: ActionPaymentFailed, ResourceID: "o1", ErrorMsg: "invalid signature"})

	got := m.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, ActionPaymentFailed, got[1].Action)
	assert.Empty(t, m.Drain())
}
