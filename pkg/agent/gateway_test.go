package agent_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kodexlab/kodex/pkg/agent"
	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T, d *dispatch.Dispatcher) *agent.Client {
	t.Helper()

	srv, err := agent.StartEmbeddedServer()
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	nc, err := srv.Connect()
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	gw := agent.NewGateway(nc, d)
	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() { _ = gw.Stop(context.Background()) })

	clientConn, err := srv.Connect()
	require.NoError(t, err)
	t.Cleanup(clientConn.Close)

	return agent.NewClient(clientConn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGatewayRoutesToolCalls(t *testing.T) {
	d := dispatch.NewDispatcher()
	d.Register("coding.create_code", func(_ context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
		var body struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(payload, &body))
		return domain.SuccessResult(map[string]any{"name": body.Name}, nil), nil
	})

	client := startGateway(t, d)

	res, err := client.Call(testContext(t), "coding.create_code", map[string]any{"name": "Anxiety"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Anxiety", res.Data["name"])
}

func TestGatewayUnknownToolReply(t *testing.T) {
	client := startGateway(t, dispatch.NewDispatcher())

	res, err := client.Call(testContext(t), "coding.no_such_tool", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, agent.CodeUnknownTool, res.ErrorCode)
	assert.NotEmpty(t, res.Suggestions)
}

func TestGatewayForwardsRejections(t *testing.T) {
	d := dispatch.NewDispatcher()
	d.Register("coding.create_code", func(context.Context, json.RawMessage) (*domain.OperationResult, error) {
		return &domain.OperationResult{
			ErrorCode:   "CODE_NOT_CREATED/DUPLICATE_NAME",
			Reason:      "a code named \"Anxiety\" already exists",
			Suggestions: []string{"pick a different name"},
		}, nil
	})

	client := startGateway(t, d)

	res, err := client.Call(testContext(t), "coding.create_code", map[string]any{"name": "Anxiety"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "CODE_NOT_CREATED/DUPLICATE_NAME", res.ErrorCode)
	assert.Equal(t, []string{"pick a different name"}, res.Suggestions)
}

func TestGatewayListsTools(t *testing.T) {
	d := dispatch.NewDispatcher()
	h := func(context.Context, json.RawMessage) (*domain.OperationResult, error) {
		return domain.SuccessResult(nil, nil), nil
	}
	d.Register("coding.create_code", h)
	d.Register("sources.add_source", h)

	client := startGateway(t, d)

	tools, err := client.ListTools(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"coding.create_code", "sources.add_source"}, tools)
}
