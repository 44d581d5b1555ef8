package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/assets"
	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/generation"
	"github.com/atelierhq/atelier/pkg/interaction"
	"github.com/atelierhq/atelier/pkg/mocks"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/persistence/file"
	"github.com/atelierhq/atelier/pkg/providers/sim"
	"github.com/atelierhq/atelier/pkg/registry"
	"github.com/atelierhq/atelier/pkg/tasks"
	"github.com/atelierhq/atelier/pkg/web"
	"github.com/atelierhq/atelier/pkg/workflows"
)

type testFixture struct {
	app     *fiber.App
	canvas  *canvas.Canvas
	tasks   *tasks.Registry
	machine *interaction.Machine
}

// setupTestApp builds the full engine behind the API with a synchronous
// simulated generation backend; setupAsyncTestApp swaps in a slow async one.
func setupTestApp(t *testing.T) *testFixture {
	t.Helper()

	return setupApp(t, 0, time.Second)
}

func setupAsyncTestApp(t *testing.T) *testFixture {
	t.Helper()

	return setupApp(t, 2, time.Minute)
}

func setupApp(t *testing.T, simSteps int, pollInterval time.Duration) *testFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultTypes()

	cv := canvas.NewCanvas(reg)
	store := file.NewPersistence(t.TempDir())
	history := assets.NewHistory(store, logger, 50)

	taskRegistry := tasks.NewRegistry(logger)
	poller := tasks.NewPoller(taskRegistry, logger, pollInterval, 5)
	orchestrator := generation.NewOrchestrator(cv, reg, taskRegistry, poller, sim.NewService(logger, simSteps), bus, history, logger)
	t.Cleanup(orchestrator.Close)

	workflowService := workflows.NewService(cv, store, orchestrator, nil, bus, logger)
	machine := interaction.NewMachine(cv, reg, bus, logger)

	handlers := web.NewAPIHandlers(
		cv,
		reg,
		orchestrator,
		taskRegistry,
		workflowService,
		history,
		machine,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return &testFixture{app: app, canvas: cv, tasks: taskRegistry, machine: machine}
}

func (f *testFixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		if str, ok := body.(string); ok {
			reader = bytes.NewBufferString(str)
		} else {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewBuffer(encoded)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(raw)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "healthy")
}

func TestGetNodeTypes(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodGet, "/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string][]web.NodeTypeResponse](t, resp)
	require.Len(t, body["node_types"], 7)
}

func TestCreateNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "places a typed node with defaults",
			requestBody:    web.CreateNodeRequest{Type: "image-generator", X: 100, Y: 50},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "custom title",
			requestBody:    web.CreateNodeRequest{Type: "prompt-input", Title: "Opening line"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown node type",
			requestBody:    web.CreateNodeRequest{Type: "hologram"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "unknown node type",
		},
		{
			name:           "missing type",
			requestBody:    web.CreateNodeRequest{X: 1},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Type",
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := setupTestApp(t)

			resp := f.request(t, http.MethodPost, "/nodes", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedError != "" {
				assert.Contains(t, bodyString(t, resp), tt.expectedError)

				return
			}

			node := decodeBody[models.Node](t, resp)
			assert.NotEmpty(t, node.ID)
			assert.Equal(t, models.NodeStatusIdle, node.Status)

			if req, ok := tt.requestBody.(web.CreateNodeRequest); ok && req.Title != "" {
				assert.Equal(t, req.Title, node.Title)
			}
		})
	}
}

func TestGetCanvas(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	prompt := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	image := f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)
	require.NoError(t, f.canvas.Connect(prompt.ID, models.PortOutput, image.ID, models.PortInput))
	f.canvas.AddGroup(0, 0, 400, 300, "Scene")

	resp := f.request(t, http.MethodGet, "/canvas", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[web.CanvasResponse](t, resp)
	assert.Len(t, body.Nodes, 2)
	assert.Len(t, body.Connections, 1)
	assert.Len(t, body.Groups, 1)
}

func TestUpdateNode(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 10, 20)

	x := 150.0
	title := "Hero shot"
	prompt := "a quiet harbor"
	resp := f.request(t, http.MethodPatch, "/nodes/"+node.ID, web.UpdateNodeRequest{
		X:      &x,
		Title:  &title,
		Prompt: &prompt,
		Params: map[string]any{"count": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Node](t, resp)
	assert.Equal(t, 150.0, updated.X)
	assert.Equal(t, 20.0, updated.Y)
	assert.Equal(t, "Hero shot", updated.Title)
	assert.Equal(t, "a quiet harbor", updated.Data.Prompt)
	assert.Equal(t, float64(2), updated.Data.Params["count"])
}

func TestUpdateNode_ResizeKeepsAspect(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 0, 0)

	width := 400.0
	resp := f.request(t, http.MethodPatch, "/nodes/"+node.ID, web.UpdateNodeRequest{Width: &width})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Node](t, resp)
	require.NotNil(t, updated.Width)
	require.NotNil(t, updated.Height)
	assert.Equal(t, 400.0, *updated.Width)
	assert.InDelta(t, 300.0, *updated.Height, 0.001)
}

func TestUpdateNode_NotFound(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	x := 1.0
	resp := f.request(t, http.MethodPatch, "/nodes/ghost", web.UpdateNodeRequest{X: &x})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteNode_CascadesConnections(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	prompt := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	image := f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)
	require.NoError(t, f.canvas.Connect(prompt.ID, models.PortOutput, image.ID, models.PortInput))

	resp := f.request(t, http.MethodDelete, "/nodes/"+prompt.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 0, f.canvas.ConnectionCount())

	remaining, ok := f.canvas.Node(image.ID)
	require.True(t, ok)
	assert.Empty(t, remaining.Inputs)

	resp = f.request(t, http.MethodDelete, "/nodes/"+prompt.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBatchDeleteNodes(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	first := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	second := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 0)

	resp := f.request(t, http.MethodPost, "/nodes/batch-delete", web.BatchDeleteRequest{
		IDs: []string{first.ID, second.ID, "ghost"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 2, body["removed"])
	assert.Equal(t, 0, f.canvas.NodeCount())
}

func TestConnectionLifecycle(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	prompt := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	image := f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)

	resp := f.request(t, http.MethodPost, "/connections", web.CreateConnectionRequest{From: prompt.ID, To: image.ID})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate edges are rejected.
	resp = f.request(t, http.MethodPost, "/connections", web.CreateConnectionRequest{From: prompt.ID, To: image.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Self connections are rejected.
	resp = f.request(t, http.MethodPost, "/connections", web.CreateConnectionRequest{From: image.ID, To: image.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/connections/"+prompt.ID+"/"+image.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/connections/"+prompt.ID+"/"+image.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReorderInputs(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	first := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	second := f.canvas.AddNode(models.NodeTypePromptInput, 0, 200)
	editor := f.canvas.AddNode(models.NodeTypeImageEditor, 300, 100)
	require.NoError(t, f.canvas.Connect(first.ID, models.PortOutput, editor.ID, models.PortInput))
	require.NoError(t, f.canvas.Connect(second.ID, models.PortOutput, editor.ID, models.PortInput))

	resp := f.request(t, http.MethodPatch, "/nodes/"+editor.ID+"/inputs", web.ReorderInputsRequest{
		Inputs: []string{second.ID, first.ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	node := decodeBody[models.Node](t, resp)
	assert.Equal(t, []string{second.ID, first.ID}, node.Inputs)

	// Anything that is not a permutation is rejected.
	resp = f.request(t, http.MethodPatch, "/nodes/"+editor.ID+"/inputs", web.ReorderInputsRequest{
		Inputs: []string{second.ID, "ghost"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroupLifecycle(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodPost, "/groups", web.CreateGroupRequest{X: 10, Y: 10, Width: 400, Height: 300, Title: "Scene"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	group := decodeBody[models.Group](t, resp)
	assert.Equal(t, "Scene", group.Title)

	x := 50.0
	title := "Scene one"
	resp = f.request(t, http.MethodPatch, "/groups/"+group.ID, web.UpdateGroupRequest{X: &x, Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Group](t, resp)
	assert.Equal(t, 50.0, updated.X)
	assert.Equal(t, 10.0, updated.Y)
	assert.Equal(t, "Scene one", updated.Title)

	resp = f.request(t, http.MethodDelete, "/groups/"+group.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/groups/"+group.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerate_SynchronousCompletion(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 0, 0)
	require.NoError(t, f.canvas.UpdateData(node.ID, func(data *models.NodeData) {
		data.Prompt = "a quiet harbor"
	}))

	resp := f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	task := decodeBody[models.GenerationTask](t, resp)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, node.ID, task.NodeID)
	assert.NotEmpty(t, task.Result)

	updated, ok := f.canvas.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, models.NodeStatusSuccess, updated.Status)
	assert.NotEmpty(t, updated.Data.Image)
}

func TestGenerate_NonGeneratorRejected(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)

	resp := f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_UnknownNode(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodPost, "/nodes/ghost/generate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerate_AlreadyRunningAnswersExistingTask(t *testing.T) {
	t.Parallel()

	f := setupAsyncTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeVideoGenerator, 0, 0)

	resp := f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	first := decodeBody[models.GenerationTask](t, resp)

	resp = f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	second := decodeBody[models.GenerationTask](t, resp)

	assert.Equal(t, first.ID, second.ID)
}

func TestCancelGeneration(t *testing.T) {
	t.Parallel()

	f := setupAsyncTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeVideoGenerator, 0, 0)

	resp := f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/nodes/"+node.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, ok := f.canvas.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, models.NodeStatusIdle, updated.Status)

	// Nothing left to cancel.
	resp = f.request(t, http.MethodPost, "/nodes/"+node.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetNodeTask(t *testing.T) {
	t.Parallel()

	f := setupAsyncTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeVideoGenerator, 0, 0)

	resp := f.request(t, http.MethodGet, "/nodes/"+node.ID+"/task", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	submitted := decodeBody[models.GenerationTask](t, resp)

	resp = f.request(t, http.MethodGet, "/nodes/"+node.ID+"/task", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	active := decodeBody[models.GenerationTask](t, resp)
	assert.Equal(t, submitted.ID, active.ID)
}

func TestGetTasks(t *testing.T) {
	t.Parallel()

	f := setupAsyncTestApp(t)

	resp := f.request(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	empty := decodeBody[map[string][]models.GenerationTask](t, resp)
	assert.Empty(t, empty["tasks"])

	node := f.canvas.AddNode(models.NodeTypeVideoGenerator, 0, 0)

	resp = f.request(t, http.MethodPost, "/nodes/"+node.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string][]models.GenerationTask](t, resp)
	require.Len(t, body["tasks"], 1)
	assert.Equal(t, node.ID, body["tasks"][0].NodeID)
}

func TestGetAssets(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	first := f.canvas.AddNode(models.NodeTypeImageGenerator, 0, 0)
	second := f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)

	resp := f.request(t, http.MethodPost, "/nodes/"+first.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/nodes/"+second.ID+"/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodGet, "/assets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string][]models.Asset](t, resp)
	require.Len(t, body["assets"], 2)
	// Newest first.
	assert.Equal(t, second.ID, body["assets"][0].NodeID)

	resp = f.request(t, http.MethodGet, "/assets?node_id="+first.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	filtered := decodeBody[map[string][]models.Asset](t, resp)
	require.Len(t, filtered["assets"], 1)
	assert.Equal(t, first.ID, filtered["assets"][0].NodeID)
}

func TestWorkflowLifecycle(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)
	f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)

	// Save.
	resp := f.request(t, http.MethodPost, "/workflows", web.SaveWorkflowRequest{Title: "Harbor study"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, "Harbor study", saved.Title)
	require.Len(t, saved.Nodes, 2)

	// List returns summaries.
	resp = f.request(t, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows []web.WorkflowSummary `json:"workflows"`
		Count     int                   `json:"count"`
		LoadedID  string                `json:"loaded_id"`
	}

	func() {
		defer func() { _ = resp.Body.Close() }()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	}()

	require.Equal(t, 1, listing.Count)
	assert.Equal(t, saved.ID, listing.Workflows[0].ID)
	assert.Equal(t, 2, listing.Workflows[0].NodeCount)
	assert.Equal(t, saved.ID, listing.LoadedID)

	// Get returns the full stored graph.
	resp = f.request(t, http.MethodGet, "/workflows/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeBody[models.Workflow](t, resp)
	assert.Len(t, fetched.Nodes, 2)

	// Rename.
	resp = f.request(t, http.MethodPatch, "/workflows/"+saved.ID, web.RenameWorkflowRequest{Title: "Harbor, final"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renamed := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, "Harbor, final", renamed.Title)

	// Delete.
	resp = f.request(t, http.MethodDelete, "/workflows/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/workflows/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoadWorkflowRestoresCanvas(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	node := f.canvas.AddNode(models.NodeTypePromptInput, 40, 60)

	resp := f.request(t, http.MethodPost, "/workflows", web.SaveWorkflowRequest{Title: "Before drift"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[models.Workflow](t, resp)

	// Drift the canvas.
	require.NoError(t, f.canvas.MoveNode(node.ID, 999, 999))
	f.canvas.AddNode(models.NodeTypeImageGenerator, 0, 0)

	resp = f.request(t, http.MethodPost, "/workflows/"+saved.ID+"/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	assert.Equal(t, 1, f.canvas.NodeCount())

	restored, ok := f.canvas.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, 40.0, restored.X)
	assert.Equal(t, 60.0, restored.Y)
}

func TestOverwriteWorkflow(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	f.canvas.AddNode(models.NodeTypePromptInput, 0, 0)

	resp := f.request(t, http.MethodPost, "/workflows", web.SaveWorkflowRequest{Title: "Draft"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[models.Workflow](t, resp)

	f.canvas.AddNode(models.NodeTypeImageGenerator, 300, 0)

	resp = f.request(t, http.MethodPost, "/workflows/"+saved.ID+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	overwritten := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, saved.ID, overwritten.ID)
	assert.Len(t, overwritten.Nodes, 2)
}

func TestSaveWorkflow_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		requestBody any
	}{
		{name: "missing title", requestBody: web.SaveWorkflowRequest{}},
		{name: "invalid JSON", requestBody: "not-json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := setupTestApp(t)

			resp := f.request(t, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestListWorkflows_RejectsUnknownSort(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodGet, "/workflows?sort_by=color", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "sort")
}

func TestPointerDragThroughAPI(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 100)

	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "node_body", NodeID: node.ID},
		X:      110, Y: 110,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decodeBody[web.InteractionResponse](t, resp)
	assert.Equal(t, "dragging_node", state.State)

	resp = f.request(t, http.MethodPost, "/interaction/pointer-move", web.PointerMoveRequest{X: 160, Y: 140})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/interaction/pointer-up", web.PointerRequest{
		Target: web.PointerTarget{Kind: "node_body", NodeID: node.ID},
		X:      160, Y: 140,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state = decodeBody[web.InteractionResponse](t, resp)
	assert.Equal(t, "idle", state.State)

	moved, ok := f.canvas.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, 150.0, moved.X)
	assert.Equal(t, 130.0, moved.Y)
}

func TestPointerClickSelects(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 100)

	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "node_body", NodeID: node.ID},
		X:      110, Y: 110,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/interaction/pointer-up", web.PointerRequest{
		Target: web.PointerTarget{Kind: "node_body", NodeID: node.ID},
		X:      110, Y: 110,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decodeBody[web.InteractionResponse](t, resp)
	assert.Equal(t, []string{node.ID}, state.Selection)
}

func TestPointerDown_RejectsUnknownTargetKind(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "nowhere"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommitTitleWithoutEditConflicts(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodPost, "/interaction/title", web.CommitTitleRequest{Title: "New title"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTitleEditThroughAPI(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)
	node := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 100)

	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "node_title", NodeID: node.ID},
		X:      110, Y: 105,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decodeBody[web.InteractionResponse](t, resp)
	assert.Equal(t, "editing_title", state.State)

	resp = f.request(t, http.MethodPost, "/interaction/title", web.CommitTitleRequest{Title: "Hero shot"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	renamed, ok := f.canvas.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, "Hero shot", renamed.Title)
}

func TestDeleteSelection(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	first := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 100)
	second := f.canvas.AddNode(models.NodeTypePromptInput, 200, 200)
	keeper := f.canvas.AddNode(models.NodeTypePromptInput, 900, 900)

	// Marquee over the first two nodes.
	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "canvas"}, X: 50, Y: 50, Modifier: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/interaction/pointer-up", web.PointerRequest{
		Target: web.PointerTarget{Kind: "canvas"}, X: 300, Y: 300,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decodeBody[web.InteractionResponse](t, resp)
	require.ElementsMatch(t, []string{first.ID, second.ID}, state.Selection)

	resp = f.request(t, http.MethodDelete, "/interaction/selection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 2, body["removed"])
	assert.Equal(t, 1, f.canvas.NodeCount())
	assert.True(t, f.canvas.NodeExists(keeper.ID))
	assert.Empty(t, f.machine.Selection())
}

func TestRetitleSelection(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	first := f.canvas.AddNode(models.NodeTypeImageGenerator, 100, 100)
	second := f.canvas.AddNode(models.NodeTypePromptInput, 200, 200)
	keeper := f.canvas.AddNode(models.NodeTypePromptInput, 900, 900)

	// Marquee over the first two nodes.
	resp := f.request(t, http.MethodPost, "/interaction/pointer-down", web.PointerRequest{
		Target: web.PointerTarget{Kind: "canvas"}, X: 50, Y: 50, Modifier: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPost, "/interaction/pointer-up", web.PointerRequest{
		Target: web.PointerTarget{Kind: "canvas"}, X: 300, Y: 300,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = bodyString(t, resp)

	resp = f.request(t, http.MethodPatch, "/interaction/selection", web.RetitleSelectionRequest{Title: "Act one"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 2, body["retitled"])

	for _, id := range []string{first.ID, second.ID} {
		node, ok := f.canvas.Node(id)
		require.True(t, ok)
		assert.Equal(t, "Act one", node.Title)
	}

	untouched, ok := f.canvas.Node(keeper.ID)
	require.True(t, ok)
	assert.NotEqual(t, "Act one", untouched.Title)
}

func TestRetitleSelection_RequiresTitle(t *testing.T) {
	t.Parallel()

	f := setupTestApp(t)

	resp := f.request(t, http.MethodPatch, "/interaction/selection", web.RetitleSelectionRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
