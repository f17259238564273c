package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokasewa/evaluator/internal/agents"
	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/schema"
	"github.com/lokasewa/evaluator/internal/session"
)

const question = "Explain the causes of the First World War."

func newTestWorkflow(mock *llm.MockCaller) *Workflow {
	return New(Agents{
		OCR:         agents.NewOCRAgent(mock, nil),
		IdealAnswer: agents.NewIdealAnswerAgent(mock, nil),
		Advocate:    agents.NewAdvocateAgent(mock, nil),
		Critic:      agents.NewCriticAgent(mock, nil),
		Synthesizer: agents.NewSynthesizerAgent(mock, nil),
	})
}

func jpegPayload() []byte {
	b := make([]byte, 30*1024)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}

func scriptHappyPath(mock *llm.MockCaller) {
	ideal := strings.Repeat("The war had layered causes, from alliances to nationalism. ", 10)
	mock.
		RespondText(llm.RoleOCR, `{"student_answer": "The war started because of the assassination of Franz Ferdinand.", "confidence_score": 0.9}`).
		RespondText(llm.RoleIdealAnswer, `{"ideal_answer": "`+ideal+`"}`).
		RespondText(llm.RoleAdvocate, `{"strengths": ["Names the immediate trigger"], "coverage_percentage": 25}`).
		RespondText(llm.RoleCritic, `{"gaps_identified": ["No mention of the alliance system"], "severity": "significant"}`).
		RespondText(llm.RoleSynthesizer, `{
			"evaluation_parameters": [
				{"parameter": "Content Accuracy", "score": 5, "comment": "Trigger only"},
				{"parameter": "Completeness", "score": 2, "comment": "Single cause"}
			]
		}`)
}

func TestRunCompletesHappyPath(t *testing.T) {
	mock := llm.NewMockCaller()
	scriptHappyPath(mock)

	state, err := newTestWorkflow(mock).Run(context.Background(),
		"sess-1", question, jpegPayload(), schema.FileTypeImage)
	require.NoError(t, err)

	assert.True(t, state.WorkflowComplete)
	assert.Empty(t, state.Errors)
	assert.Empty(t, state.FailedAgents)
	assert.Contains(t, state.StudentAnswer, "Franz Ferdinand")
	assert.NotEmpty(t, state.IdealAnswer)
	require.Equal(t, schema.StatusSuccess, state.SynthesizerOutput.Status)
	assert.Len(t, state.SynthesizerOutput.EvaluationParameters, schema.NumEvaluationParameters)
	assert.Equal(t, 5+2+8*5, state.SynthesizerOutput.FinalMarks)
	assert.Greater(t, state.TotalTimeSeconds, 0.0)

	// One call per role, no more.
	for _, role := range []llm.Role{llm.RoleOCR, llm.RoleIdealAnswer, llm.RoleAdvocate, llm.RoleCritic, llm.RoleSynthesizer} {
		assert.Equal(t, 1, mock.CallsFor(role), role)
	}
}

func TestRunOCRFailureSkipsDownstream(t *testing.T) {
	mock := llm.NewMockCaller()
	scriptHappyPath(mock)
	mock.Fail(llm.RoleOCR, "vision provider unavailable")

	state, err := newTestWorkflow(mock).Run(context.Background(),
		"sess-2", question, jpegPayload(), schema.FileTypeImage)
	require.NoError(t, err, "agent failures never abort the graph")

	assert.False(t, state.WorkflowComplete)
	assert.Equal(t, schema.StatusError, state.OCROutput.Status)
	// Ideal answer generation is independent of extraction.
	assert.Equal(t, schema.StatusSuccess, state.IdealOutput.Status)

	assert.Equal(t, schema.StatusError, state.AdvocateOutput.Status)
	assert.Equal(t, schema.StatusError, state.CriticOutput.Status)
	assert.Equal(t, schema.StatusError, state.SynthesizerOutput.Status)

	assert.Zero(t, mock.CallsFor(llm.RoleAdvocate), "skipped nodes must not call the model")
	assert.Zero(t, mock.CallsFor(llm.RoleCritic))
	assert.Zero(t, mock.CallsFor(llm.RoleSynthesizer))

	assert.ElementsMatch(t,
		[]string{NodeOCR, NodeAdvocate, NodeCritic, NodeSynthesizer},
		state.FailedAgents)
	require.Len(t, state.Errors, 4)
	assert.Contains(t, state.Errors[0], "OCR")
	for _, e := range state.Errors[1:3] {
		assert.Contains(t, e, "OCR extraction failed")
	}
}

func TestRunAdvocateFailureSkipsSynthesisOnly(t *testing.T) {
	mock := llm.NewMockCaller()
	scriptHappyPath(mock)
	mock.Fail(llm.RoleAdvocate, "model overloaded")

	state, err := newTestWorkflow(mock).Run(context.Background(),
		"sess-3", question, jpegPayload(), schema.FileTypeImage)
	require.NoError(t, err)

	assert.False(t, state.WorkflowComplete)
	assert.Equal(t, schema.StatusError, state.AdvocateOutput.Status)
	assert.Equal(t, schema.StatusSuccess, state.CriticOutput.Status)
	assert.Equal(t, schema.StatusError, state.SynthesizerOutput.Status)
	assert.Zero(t, mock.CallsFor(llm.RoleSynthesizer))
	assert.ElementsMatch(t, []string{NodeAdvocate, NodeSynthesizer}, state.FailedAgents)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := llm.NewMockCaller()
	scriptHappyPath(mock)
	_, err := newTestWorkflow(mock).Run(ctx, "sess-4", question, jpegPayload(), schema.FileTypeImage)
	require.Error(t, err)
}

// memTrail collects trail events in memory.
type memTrail struct {
	mu     sync.Mutex
	events []session.Event
}

func (m *memTrail) Log(ev session.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memTrail) Close() error { return nil }

func (m *memTrail) ofType(t session.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func TestRunEmitsTrailEvents(t *testing.T) {
	mock := llm.NewMockCaller()
	scriptHappyPath(mock)
	trail := &memTrail{}

	wf := New(Agents{
		OCR:         agents.NewOCRAgent(mock, nil),
		IdealAnswer: agents.NewIdealAnswerAgent(mock, nil),
		Advocate:    agents.NewAdvocateAgent(mock, nil),
		Critic:      agents.NewCriticAgent(mock, nil),
		Synthesizer: agents.NewSynthesizerAgent(mock, nil),
	}, WithTrail(trail))

	state, err := wf.Run(context.Background(), "sess-t", question, jpegPayload(), schema.FileTypeImage)
	require.NoError(t, err)
	require.True(t, state.WorkflowComplete)

	assert.Equal(t, 1, trail.ofType(session.EventEvaluationStart))
	assert.Equal(t, 5, trail.ofType(session.EventAgentStart))
	assert.Equal(t, 5, trail.ofType(session.EventAgentComplete))
	assert.Equal(t, 1, trail.ofType(session.EventEvaluationEnd))
	// No cost resolver is wired, so no generation costs are reported.
	assert.Zero(t, trail.ofType(session.EventCostResolved))
}

func TestConcatReducerKeepsBothSides(t *testing.T) {
	got := concatReducer([]string{"a", "b"}, []string{"c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)

	assert.Equal(t, []string{"a"}, concatReducer([]string{"a"}, nil))
	assert.Equal(t, []string{"x"}, concatReducer(nil, []string{"x"}))
}

func TestMergeNeverLosesErrorsUnderConcurrency(t *testing.T) {
	const n = 100
	state := &schema.State{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := Update{
				Errors:       []string{fmt.Sprintf("error %d", i)},
				FailedAgents: []string{fmt.Sprintf("agent %d", i)},
			}
			mu.Lock()
			merge(state, u)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, state.Errors, n, "every concurrent error report must survive the merge")
	require.Len(t, state.FailedAgents, n)
	seen := make(map[string]bool, n)
	for _, e := range state.Errors {
		seen[e] = true
	}
	assert.Len(t, seen, n)
}

func TestMergeScalarOverwriteAndCostAccumulation(t *testing.T) {
	state := &schema.State{}

	first := "draft answer"
	merge(state, Update{StudentAnswer: &first})
	second := "final answer"
	merge(state, Update{StudentAnswer: &second})
	assert.Equal(t, "final answer", state.StudentAnswer)

	adv := schema.AdvocateOutput{}
	adv.Status = schema.StatusSuccess
	adv.CostUSD = 0.002
	adv.CostNPR = 0.284
	adv.TimeTakenSeconds = 1.5
	crit := schema.CriticOutput{}
	crit.Status = schema.StatusSuccess
	crit.CostUSD = 0.003
	crit.CostNPR = 0.426

	merge(state, Update{AdvocateOutput: &adv})
	merge(state, Update{CriticOutput: &crit})
	assert.InDelta(t, 0.005, state.TotalCostUSD, 1e-9)
	assert.InDelta(t, 0.710, state.TotalCostNPR, 1e-9)
	assert.Equal(t, 1.5, state.AdvocateTimeSeconds)
}

func TestReadyNodesLayering(t *testing.T) {
	done := map[string]bool{}
	assert.ElementsMatch(t, []string{NodeOCR, NodeIdealAnswer}, readyNodes(done))

	done[NodeOCR] = true
	assert.ElementsMatch(t, []string{NodeIdealAnswer}, readyNodes(done))

	done[NodeIdealAnswer] = true
	assert.ElementsMatch(t, []string{NodeAdvocate, NodeCritic}, readyNodes(done))

	done[NodeAdvocate] = true
	done[NodeCritic] = true
	assert.ElementsMatch(t, []string{NodeSynthesizer}, readyNodes(done))

	done[NodeSynthesizer] = true
	assert.Empty(t, readyNodes(done))
}
