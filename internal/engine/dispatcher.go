package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/llm"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
	"github.com/talentarc-ai/outreach-platform/pkg/metrics"
)

// The four commands the dispatcher executes. Each tool call decodes into
// exactly one of these; the set is matched exhaustively in Dispatch.
type generateSequenceCmd struct {
	CompanyName      string `json:"company_name"`
	RoleName         string `json:"role_name"`
	CandidatePersona string `json:"candidate_persona"`
}

type updateSequenceCmd struct {
	SequenceID string         `json:"sequence_id"`
	Updates    map[string]any `json:"updates"`
}

type addSequenceStepCmd struct {
	SequenceID string `json:"sequence_id"`
	StepType   string `json:"step_type"`
	Content    string `json:"content"`
	Subject    string `json:"subject"`
	Timing     string `json:"timing"`
	WaitTime   *int   `json:"wait_time"`
}

type updateSequenceStepCmd struct {
	StepID  string         `json:"step_id"`
	Updates map[string]any `json:"updates"`
}

// Dispatcher executes tool calls against the sequence store. Every
// dependency is injected once at construction; nothing reaches for
// package-level state.
type Dispatcher struct {
	store       SequenceStore
	llm         llm.Client
	model       string
	broadcaster Broadcaster
	logger      *logger.Logger
	timeout     time.Duration
}

// NewDispatcher creates a dispatcher. timeout bounds the step-generation
// call made inside generate_sequence; zero disables the bound.
func NewDispatcher(store SequenceStore, llmClient llm.Client, modelName string, broadcaster Broadcaster, log *logger.Logger, timeout time.Duration) *Dispatcher {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Dispatcher{
		store:       store,
		llm:         llmClient,
		model:       modelName,
		broadcaster: broadcaster,
		logger:      log,
		timeout:     timeout,
	}
}

// Dispatch executes a tool call and returns a human-readable result for
// the model's second round. It never returns an error: unknown tools,
// missing entities, and persistence failures all become result text, with
// ok=false so the caller can mark the call failed.
func (d *Dispatcher) Dispatch(ctx context.Context, call llm.ToolCall, session *model.Session) (result string, ok bool) {
	start := time.Now()
	defer func() {
		status := "completed"
		if !ok {
			status = "failed"
		}
		metrics.RecordToolCall(call.Name, status, time.Since(start).Seconds())
	}()

	switch call.Name {
	case toolGenerateSequence:
		var cmd generateSequenceCmd
		if msg, decoded := decodeArgs(call, &cmd); !decoded {
			return msg, false
		}
		return d.generateSequence(ctx, cmd, session)

	case toolUpdateSequence:
		var cmd updateSequenceCmd
		if msg, decoded := decodeArgs(call, &cmd); !decoded {
			return msg, false
		}
		return d.updateSequence(ctx, cmd)

	case toolAddSequenceStep:
		var cmd addSequenceStepCmd
		if msg, decoded := decodeArgs(call, &cmd); !decoded {
			return msg, false
		}
		return d.addSequenceStep(ctx, cmd)

	case toolUpdateSequenceStep:
		var cmd updateSequenceStepCmd
		if msg, decoded := decodeArgs(call, &cmd); !decoded {
			return msg, false
		}
		return d.updateSequenceStep(ctx, cmd)

	default:
		return fmt.Sprintf("Unknown tool: %s", call.Name), false
	}
}

// complete runs one text generation call under the same timeout bound
// the orchestrator applies to its rounds.
func (d *Dispatcher) complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := d.llm.Complete(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMRequest(req.Model, status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.LLMTokensTotal.WithLabelValues(resp.Model, "in").Add(float64(resp.TokensIn))
	metrics.LLMTokensTotal.WithLabelValues(resp.Model, "out").Add(float64(resp.TokensOut))
	return resp, nil
}

func decodeArgs(call llm.ToolCall, dst any) (string, bool) {
	if err := json.Unmarshal([]byte(call.Arguments), dst); err != nil {
		return fmt.Sprintf("Error executing %s: invalid arguments", call.Name), false
	}
	return "", true
}

func (d *Dispatcher) generateSequence(ctx context.Context, cmd generateSequenceCmd, session *model.Session) (string, bool) {
	now := time.Now().UTC()

	seq := &model.Sequence{
		ID:               uuid.New().String(),
		UserID:           session.UserID,
		Name:             fmt.Sprintf("%s at %s Outreach", cmd.RoleName, cmd.CompanyName),
		CompanyName:      cmd.CompanyName,
		RoleName:         cmd.RoleName,
		CandidatePersona: cmd.CandidatePersona,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	resp, err := d.complete(ctx, &llm.CompletionRequest{
		Model: d.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: stepGeneratorPrompt},
			{Role: "user", Content: stepGenerationPrompt(cmd.CompanyName, cmd.RoleName, cmd.CandidatePersona)},
		},
	})
	if err != nil {
		d.logger.Error("step generation failed", zap.Error(err))
		return fmt.Sprintf("Error generating sequence: %v", err), false
	}

	drafts := ParseSequenceText(resp.Content)
	metrics.StepsParsed.Observe(float64(len(drafts)))

	for i, draft := range drafts {
		number := i + 1
		seq.Steps = append(seq.Steps, model.Step{
			ID:         uuid.New().String(),
			SequenceID: seq.ID,
			StepNumber: number,
			Type:       draft.Type,
			Content:    draft.Content,
			Subject:    draft.Subject,
			Timing:     draft.Timing,
			WaitTime:   number - 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := d.store.CreateSequenceWithSteps(ctx, seq, session.ID); err != nil {
		d.logger.Error("sequence creation failed", zap.Error(err))
		return fmt.Sprintf("Error generating sequence: %v", err), false
	}

	session.CurrentSequenceID = &seq.ID
	d.broadcaster.BroadcastSequence(ctx, seq)

	return fmt.Sprintf("Created outreach sequence '%s' with %d steps", seq.Name, len(seq.Steps)), true
}

func (d *Dispatcher) updateSequence(ctx context.Context, cmd updateSequenceCmd) (string, bool) {
	seq, err := d.store.GetSequence(ctx, cmd.SequenceID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Sequence with ID %s not found", cmd.SequenceID), false
	}
	if err != nil {
		d.logger.Error("sequence load failed", zap.Error(err))
		return fmt.Sprintf("Error updating sequence: %v", err), false
	}

	// Only the recognized fields apply; anything else in the map is
	// ignored rather than rejected.
	if v, set := stringField(cmd.Updates, "name"); set {
		seq.Name = v
	}
	if v, set := stringField(cmd.Updates, "company_name"); set {
		seq.CompanyName = v
	}
	if v, set := stringField(cmd.Updates, "role_name"); set {
		seq.RoleName = v
	}
	if v, set := stringField(cmd.Updates, "candidate_persona"); set {
		seq.CandidatePersona = v
	}
	seq.UpdatedAt = time.Now().UTC()

	if err := d.store.UpdateSequence(ctx, seq); err != nil {
		d.logger.Error("sequence update failed", zap.Error(err))
		return fmt.Sprintf("Error updating sequence: %v", err), false
	}

	d.broadcaster.BroadcastSequence(ctx, seq)

	return fmt.Sprintf("Updated sequence '%s' successfully", seq.Name), true
}

func (d *Dispatcher) addSequenceStep(ctx context.Context, cmd addSequenceStepCmd) (string, bool) {
	seq, err := d.store.GetSequence(ctx, cmd.SequenceID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Sequence with ID %s not found", cmd.SequenceID), false
	}
	if err != nil {
		d.logger.Error("sequence load failed", zap.Error(err))
		return fmt.Sprintf("Error adding sequence step: %v", err), false
	}

	maxNumber, err := d.store.MaxStepNumber(ctx, cmd.SequenceID)
	if err != nil {
		d.logger.Error("step number lookup failed", zap.Error(err))
		return fmt.Sprintf("Error adding sequence step: %v", err), false
	}
	nextNumber := maxNumber + 1

	waitTime := nextNumber - 1
	if cmd.WaitTime != nil {
		waitTime = clampWaitTime(*cmd.WaitTime)
	}

	now := time.Now().UTC()
	step := &model.Step{
		ID:         uuid.New().String(),
		SequenceID: cmd.SequenceID,
		StepNumber: nextNumber,
		Type:       normalizeStepType(cmd.StepType),
		Content:    cmd.Content,
		Subject:    cmd.Subject,
		Timing:     cmd.Timing,
		WaitTime:   waitTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.store.AddStep(ctx, step); err != nil {
		d.logger.Error("step insert failed", zap.Error(err))
		return fmt.Sprintf("Error adding sequence step: %v", err), false
	}

	d.broadcastSequenceByID(ctx, cmd.SequenceID)

	return fmt.Sprintf("Added %s step to sequence '%s'", step.Type, seq.Name), true
}

func (d *Dispatcher) updateSequenceStep(ctx context.Context, cmd updateSequenceStepCmd) (string, bool) {
	step, err := d.store.GetStep(ctx, cmd.StepID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Step with ID %s not found", cmd.StepID), false
	}
	if err != nil {
		d.logger.Error("step load failed", zap.Error(err))
		return fmt.Sprintf("Error updating sequence step: %v", err), false
	}

	if v, set := stringField(cmd.Updates, "content"); set {
		step.Content = v
	}
	if v, set := stringField(cmd.Updates, "subject"); set {
		step.Subject = v
	}
	if v, set := stringField(cmd.Updates, "type"); set {
		step.Type = normalizeStepType(v)
	}
	if v, set := stringField(cmd.Updates, "timing"); set {
		step.Timing = v
	}
	if v, set := intField(cmd.Updates, "wait_time"); set {
		step.WaitTime = clampWaitTime(v)
	}
	step.UpdatedAt = time.Now().UTC()

	if err := d.store.UpdateStep(ctx, step); err != nil {
		d.logger.Error("step update failed", zap.Error(err))
		return fmt.Sprintf("Error updating sequence step: %v", err), false
	}

	d.broadcastSequenceByID(ctx, step.SequenceID)

	return fmt.Sprintf("Updated step %d successfully", step.StepNumber), true
}

func (d *Dispatcher) broadcastSequenceByID(ctx context.Context, sequenceID string) {
	seq, err := d.store.GetSequence(ctx, sequenceID)
	if err != nil {
		d.logger.Warn("broadcast reload failed", zap.String("sequence_id", sequenceID), zap.Error(err))
		return
	}
	d.broadcaster.BroadcastSequence(ctx, seq)
}

// clampWaitTime enforces the non-negative wait-time invariant on values
// supplied by the model.
func clampWaitTime(days int) int {
	if days < 0 {
		return 0
	}
	return days
}

func normalizeStepType(raw string) model.StepType {
	t := model.StepType(strings.ToLower(strings.TrimSpace(raw)))
	if model.ValidStepType(t) {
		return t
	}
	return model.StepTypeOther
}

func stringField(m map[string]any, key string) (string, bool) {
	v, present := m[key]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// intField tolerates the float64 that encoding/json produces for numbers.
func intField(m map[string]any, key string) (int, bool) {
	v, present := m[key]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
