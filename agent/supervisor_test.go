package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
)

func newWorker(t *testing.T, name, role string, outputs ...string) *Agent {
	t.Helper()

	responses := make([]*llm.ChatResponse, len(outputs))
	for i, out := range outputs {
		responses[i] = textResponse(out)
	}
	a, err := New(name, Definition{Role: role, Goal: "do " + name + " work"},
		&scriptedProvider{responses: responses}, nil, Options{}, zap.NewNop())
	require.NoError(t, err)
	return a
}

func supervisorDef() Definition {
	return Definition{
		Role:                "Financial Advisor Supervisor",
		Goal:                "Deliver a complete financial report",
		CollaborationPrompt: "Delegate work to your collaborators.",
	}
}

func TestNewSupervisor_Validation(t *testing.T) {
	provider := &scriptedProvider{}
	worker := newWorker(t, "analyst", "Analyst")

	_, err := NewSupervisor("sup", supervisorDef(), provider, nil, Options{}, nil)
	require.Error(t, err)

	_, err = NewSupervisor("sup", supervisorDef(), provider,
		[]*Agent{worker, worker}, Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate worker")

	sup, err := NewSupervisor("sup", supervisorDef(), provider, []*Agent{worker}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sup", sup.Name())
	assert.Equal(t, []string{"analyst"}, sup.Workers())
}

func TestSupervisor_InvokeWithTasks_Sequential(t *testing.T) {
	internal := newWorker(t, "financial_internal_analyst", "Internal Analyst", "figures extracted")
	external := newWorker(t, "financial_external_analyst", "External Analyst", "market research done")
	supProvider := &scriptedProvider{responses: []*llm.ChatResponse{textResponse("final report")}}

	sup, err := NewSupervisor("financial_advisor", supervisorDef(), supProvider,
		[]*Agent{internal, external}, Options{}, zap.NewNop())
	require.NoError(t, err)

	tasks := []*Task{
		{Name: "extract", Description: "Extract figures.", Worker: "financial_internal_analyst"},
		{Name: "research", Description: "Research the market.", Worker: "financial_external_analyst"},
	}
	res, err := sup.InvokeWithTasks(context.Background(), tasks, InvokeOptions{
		Processing:             ProcessingSequential,
		AdditionalInstructions: "Use working memory table run-1.",
	})
	require.NoError(t, err)

	assert.Equal(t, "final report", res.Output)
	assert.Equal(t, "figures extracted", res.TaskOutputs["extract"])
	assert.Equal(t, "market research done", res.TaskOutputs["research"])
	// 两个任务 + 一次汇总
	assert.Equal(t, 45, res.Usage.TotalTokens)

	// 第二个任务能看到第一个任务的产出
	extProvider := external.provider.(*scriptedProvider)
	require.Len(t, extProvider.requests, 1)
	user := extProvider.requests[0].Messages[1].Content
	assert.Contains(t, user, "[extract by financial_internal_analyst]\nfigures extracted")
	assert.Contains(t, user, "Additional instructions:\nUse working memory table run-1.")

	// 汇总请求包含全部任务产出与附加指令
	require.Len(t, supProvider.requests, 1)
	synth := supProvider.requests[0].Messages[1].Content
	assert.Contains(t, synth, "--- extract ---\nfigures extracted")
	assert.Contains(t, synth, "--- research ---\nmarket research done")
	assert.Contains(t, synth, "Additional instructions:\nUse working memory table run-1.")
}

func TestSupervisor_InvokeWithTasks_UnknownWorker(t *testing.T) {
	worker := newWorker(t, "analyst", "Analyst")
	sup, err := NewSupervisor("sup", supervisorDef(), &scriptedProvider{},
		[]*Agent{worker}, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = sup.InvokeWithTasks(context.Background(),
		[]*Task{{Name: "t", Description: "d", Worker: "nobody"}}, InvokeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown worker "nobody"`)
	assert.Contains(t, err.Error(), "analyst")
}

func TestSupervisor_InvokeWithTasks_UnsupportedProcessing(t *testing.T) {
	worker := newWorker(t, "analyst", "Analyst")
	sup, err := NewSupervisor("sup", supervisorDef(), &scriptedProvider{},
		[]*Agent{worker}, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = sup.InvokeWithTasks(context.Background(),
		[]*Task{{Name: "t", Description: "d", Worker: "analyst"}},
		InvokeOptions{Processing: "parallel"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported processing type")
}

func TestSupervisor_InvokeWithTasks_NoTasks(t *testing.T) {
	worker := newWorker(t, "analyst", "Analyst")
	sup, err := NewSupervisor("sup", supervisorDef(), &scriptedProvider{},
		[]*Agent{worker}, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = sup.InvokeWithTasks(context.Background(), nil, InvokeOptions{})
	require.Error(t, err)
}

func TestSupervisor_Delegation_PicksNamedWorker(t *testing.T) {
	internal := newWorker(t, "financial_internal_analyst", "Internal Analyst")
	external := newWorker(t, "financial_external_analyst", "External Analyst", "research done")
	supProvider := &scriptedProvider{responses: []*llm.ChatResponse{
		textResponse("financial_external_analyst"), // 委派答复
		textResponse("final report"),               // 汇总
	}}

	sup, err := NewSupervisor("financial_advisor", supervisorDef(), supProvider,
		[]*Agent{internal, external}, Options{}, zap.NewNop())
	require.NoError(t, err)

	res, err := sup.InvokeWithTasks(context.Background(),
		[]*Task{{Name: "research", Description: "Research the market."}}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "research done", res.TaskOutputs["research"])

	// 委派请求里带了协作者名单
	delegation := supProvider.requests[0].Messages[1].Content
	assert.Contains(t, delegation, "financial_internal_analyst: Internal Analyst")
	assert.Contains(t, delegation, "financial_external_analyst: External Analyst")

	// 内部分析师没被调用
	assert.Empty(t, internal.provider.(*scriptedProvider).requests)
}

func TestSupervisor_Delegation_FallsBackToFirstWorker(t *testing.T) {
	internal := newWorker(t, "financial_internal_analyst", "Internal Analyst", "figures")
	external := newWorker(t, "financial_external_analyst", "External Analyst")
	supProvider := &scriptedProvider{responses: []*llm.ChatResponse{
		textResponse("I cannot decide."),
		textResponse("final report"),
	}}

	sup, err := NewSupervisor("financial_advisor", supervisorDef(), supProvider,
		[]*Agent{internal, external}, Options{}, zap.NewNop())
	require.NoError(t, err)

	res, err := sup.InvokeWithTasks(context.Background(),
		[]*Task{{Name: "t", Description: "Do something."}}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "figures", res.TaskOutputs["t"])
	assert.Empty(t, external.provider.(*scriptedProvider).requests)
}

func TestSupervisor_EmptySynthesisOutput(t *testing.T) {
	worker := newWorker(t, "analyst", "Analyst", "done")
	supProvider := &scriptedProvider{responses: []*llm.ChatResponse{textResponse("")}}

	sup, err := NewSupervisor("sup", supervisorDef(), supProvider,
		[]*Agent{worker}, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = sup.InvokeWithTasks(context.Background(),
		[]*Task{{Name: "t", Description: "d", Worker: "analyst"}}, InvokeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty synthesis output")
}
