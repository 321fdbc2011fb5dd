package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"casedesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEventFraming(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	event := domain.CaseEvent{
		TenantID:   "firm-a",
		Type:       domain.EventCaseStatusChanged,
		CaseID:     "cc-1",
		CaseKind:   domain.KindCredit,
		Version:    3,
		Payload:    domain.StatusChangedPayload{FromStatus: domain.StatusNew, ToStatus: domain.StatusAssigned, ActorID: "dc-1"},
		OccurredAt: time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC),
	}
	require.NoError(t, writeEvent(w, event))
	require.NoError(t, w.Flush())

	frame := buf.String()
	require.True(t, strings.HasSuffix(frame, "\n\n"))
	lines := strings.Split(strings.TrimSuffix(frame, "\n\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "event: caseStatusChanged", lines[0])
	assert.Equal(t, "id: cc-1/3", lines[1])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &decoded))
	assert.Equal(t, "cc-1", decoded["case_id"])
	assert.Equal(t, "assigned", decoded["payload"].(map[string]any)["to_status"])
}

func TestWriteEventWithoutVersionHasNoID(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, writeEvent(w, domain.CaseEvent{TenantID: "firm-a", Type: domain.EventCaseCreated, CaseID: "cc-1"}))
	require.NoError(t, w.Flush())
	assert.NotContains(t, buf.String(), "id: ")
}
