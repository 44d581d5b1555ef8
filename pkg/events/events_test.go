package events

import (
	"encoding/json"
	"testing"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name  string
		event interface{ GetType() EventType }
		want  EventType
	}{
		{"node added", NodeAdded{}, NodeAddedEvent},
		{"node moved", NodeMoved{}, NodeMovedEvent},
		{"node resized", NodeResized{}, NodeResizedEvent},
		{"node retitled", NodeRetitled{}, NodeRetitledEvent},
		{"node removed", NodeRemoved{}, NodeRemovedEvent},
		{"connection created", ConnectionCreated{}, ConnectionCreatedEvent},
		{"connection removed", ConnectionRemoved{}, ConnectionRemovedEvent},
		{"group moved", GroupMoved{}, GroupMovedEvent},
		{"task submitted", TaskSubmitted{}, TaskSubmittedEvent},
		{"task progressed", TaskProgressed{}, TaskProgressedEvent},
		{"task completed", TaskCompleted{}, TaskCompletedEvent},
		{"task failed", TaskFailed{}, TaskFailedEvent},
		{"task cancelled", TaskCancelled{}, TaskCancelledEvent},
		{"workflow saved", WorkflowSaved{}, WorkflowSavedEvent},
		{"workflow loaded", WorkflowLoaded{}, WorkflowLoadedEvent},
		{"workflow renamed", WorkflowRenamed{}, WorkflowRenamedEvent},
		{"workflow deleted", WorkflowDeleted{}, WorkflowDeletedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.GetType())
		})
	}
}

func TestTaskCompleted_RoundTrip(t *testing.T) {
	event := TaskCompleted{
		TaskID:    "t1",
		NodeID:    "n1",
		ResultURI: "img://result",
	}
	event.Type = event.GetType()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded TaskCompleted

	err = json.Unmarshal(payload, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "t1", decoded.TaskID)
	assert.Equal(t, "n1", decoded.NodeID)
	assert.Equal(t, "img://result", decoded.ResultURI)
	assert.Equal(t, TaskCompletedEvent, decoded.Type)
}

func TestTaskProgressed_CarriesStatus(t *testing.T) {
	event := TaskProgressed{
		TaskID:   "t1",
		NodeID:   "n1",
		Status:   models.TaskStatusProcessing,
		Progress: 40,
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"status":"processing"`)
	assert.Contains(t, string(payload), `"progress":40`)
}
