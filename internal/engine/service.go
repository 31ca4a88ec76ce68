package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pipewerks/pipeflow/internal/wiring"
	"github.com/pipewerks/pipeflow/pkg/api"
)

// Dependencies bundles everything Execute needs beyond the input itself.
type Dependencies struct {
	Resolver   ComponentResolver
	Dispatcher *wiring.Dispatcher

	// Observer receives lifecycle events. Optional.
	Observer api.Observer
	// Logger receives per-stage debug lines. Optional.
	Logger *slog.Logger
}

func (d *Dependencies) observer() api.Observer {
	if d.Observer == nil {
		return api.NoopObserver{}
	}
	return d.Observer
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// stepTimer measures one orchestration stage.
type stepTimer struct {
	name  string
	begin time.Time
}

func startStep(name string) stepTimer {
	return stepTimer{name: name, begin: time.Now()}
}

func (t stepTimer) finish() api.MeasuredStep {
	end := time.Now()
	return api.MeasuredStep{
		Name:     t.name,
		Begin:    t.begin,
		End:      end,
		Duration: end.Sub(t.begin),
	}
}

// Execute runs one workflow execution end to end: validate the wiring, parse
// the graph, load input data, evaluate, send output data, and encode the
// outputs. It never returns a Go error; every failure becomes a structured
// failure result.
func Execute(ctx context.Context, input *api.ExecutionInput, deps Dependencies) *api.ExecutionResult {
	jobID := input.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	observer := deps.observer()
	logger := deps.logger().With(slog.String("job_id", jobID))
	observer.OnExecutionStart(ctx, jobID)

	cfg := input.Configuration
	ctx = api.WithConfig(ctx, cfg)
	ctx = withRunHooks(ctx, observer, jobID)

	var steps []api.MeasuredStep
	fail := func(err error, stage string) *api.ExecutionResult {
		result := &api.ExecutionResult{
			Outcome:       api.OutcomeFailure,
			JobID:         jobID,
			Error:         structuredError(err, stage),
			MeasuredSteps: steps,
		}
		observer.OnExecutionFailed(ctx, jobID, result)
		return result
	}
	finishStep := func(t stepTimer) {
		step := t.finish()
		steps = append(steps, step)
		logger.DebugContext(ctx, "stage_completed",
			slog.String("stage", step.Name),
			slog.Duration("duration", step.Duration),
		)
	}

	if input.Wiring == nil {
		input.Wiring = &api.WorkflowWiring{}
	}
	input.Wiring.CompleteOutputWirings(input.Workflow)
	if err := input.Wiring.Validate(input.Workflow); err != nil {
		return fail(err, api.StageParsingWorkflow)
	}

	parseStep := startStep(api.StageParsingWorkflow)
	wf, err := ParseWorkflow(input.Workflow, deps.Resolver)
	finishStep(parseStep)
	if err != nil {
		return fail(err, api.StageParsingWorkflow)
	}

	loadStep := startStep(api.StageLoadingData)
	loaded, err := deps.Dispatcher.Load(ctx, input.Wiring.InputWirings)
	finishStep(loadStep)
	if err != nil {
		return fail(err, api.StageLoadingData)
	}

	injectStep := startStep(api.StageParsingLoadedData)
	err = injectLoadedData(wf, input.Workflow, loaded)
	finishStep(injectStep)
	if err != nil {
		return fail(err, api.StageParsingLoadedData)
	}

	execStep := startStep(api.StageExecutingComponent)
	outputs, nodeResults, err := evaluate(ctx, wf, cfg)
	finishStep(execStep)
	if err != nil {
		return fail(err, api.StageExecutingComponent)
	}

	sendStep := startStep(api.StageSendingData)
	direct, err := deps.Dispatcher.Send(ctx, input.Wiring.OutputWirings, outputs)
	finishStep(sendStep)
	if err != nil {
		return fail(err, api.StageSendingData)
	}

	encodeStep := startStep(api.StageEncodingResults)
	serialized, err := serializeOutputs(direct)
	finishStep(encodeStep)
	if err != nil {
		return fail(err, api.StageEncodingResults)
	}

	result := &api.ExecutionResult{
		Outcome:       api.OutcomeOK,
		JobID:         jobID,
		Outputs:       serialized,
		MeasuredSteps: steps,
	}
	if cfg.ReturnIndividualNodeResults {
		result.NodeResults = nodeResults
	}
	observer.OnExecutionCompleted(ctx, jobID, result)
	return result
}

// injectLoadedData attaches the run-time loaded input data as a
// constant-provider node. It binds after parsing, so it overrides any
// declared defaults for the same inputs.
func injectLoadedData(wf *Workflow, desc *api.WorkflowNode, loaded map[string]any) error {
	if len(loaded) == 0 {
		return nil
	}
	kinds := make(map[string]api.Kind, len(desc.Inputs))
	for _, in := range desc.Inputs {
		if in.Name != "" {
			kinds[in.Name] = in.Kind
		}
	}
	values := make([]api.NamedValue, 0, len(loaded))
	for name, v := range loaded {
		kind, ok := kinds[name]
		if !ok {
			return inputValidationErr(wf.OperatorID(), wf.OperatorName(),
				fmt.Errorf("loaded data names unknown workflow input %q", name))
		}
		values = append(values, api.NamedValue{Name: name, Kind: kind, Value: v})
	}
	return wf.AddConstantProvidingNode(values, DynamicDataSuffix)
}

// evaluate pulls the workflow outputs and then forces every reachable
// computation node, so that side-effect-only nodes run too. Plot-only nodes
// are skipped when configured.
func evaluate(ctx context.Context, wf *Workflow, cfg api.Configuration) (map[string]any, string, error) {
	outputs, err := wf.Result(ctx)
	if err != nil {
		return nil, "", err
	}

	var sb strings.Builder
	for _, node := range wf.ObtainAllNodes() {
		if cfg.SkipPurePlotOperators && node.OnlyPlotOutputs() {
			fmt.Fprintf(&sb, "%s %v\n", node.OperatorID(), map[string]any{})
			continue
		}
		res, err := node.Result(ctx)
		if err != nil {
			return nil, "", err
		}
		fmt.Fprintf(&sb, "%s %v\n", node.OperatorID(), res)
	}
	return outputs, sb.String(), nil
}

// serializeOutputs renders the direct-provisioning output values and guards
// against non-encodable results with a final json.Marshal pass.
func serializeOutputs(direct map[string]any) (map[string]any, error) {
	serialized := make(map[string]any, len(direct))
	for name, v := range direct {
		sv, err := api.Serialize(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		serialized[name] = sv
	}
	if _, err := json.Marshal(serialized); err != nil {
		return nil, fmt.Errorf("outputs are not JSON-encodable: %w", err)
	}
	return serialized, nil
}

// structuredError converts any engine error into the public structured
// shape, preserving node context and the component error payload.
func structuredError(err error, stage string) *api.StructuredError {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return &api.StructuredError{
			Kind:             rt.Kind,
			Message:          err.Error(),
			OperatorID:       rt.NodeID,
			OperatorName:     rt.NodeName,
			ErrorCode:        rt.Code,
			ExtraInformation: rt.Extra,
			ProcessStage:     stage,
		}
	}
	var pe *ParsingError
	if errors.As(err, &pe) {
		return &api.StructuredError{
			Kind:         api.ErrorKindParsing,
			Message:      err.Error(),
			ProcessStage: stage,
		}
	}
	var wv *api.WiringValidationError
	if errors.As(err, &wv) {
		return &api.StructuredError{
			Kind:         api.ErrorKindInputValidation,
			Message:      err.Error(),
			ProcessStage: stage,
		}
	}
	var ae *wiring.AdapterError
	if errors.As(err, &ae) {
		return &api.StructuredError{
			Kind:         api.ErrorKindAdapter,
			Message:      err.Error(),
			ProcessStage: stage,
		}
	}
	kind := api.ErrorKindUnexpectedFailure
	if stage == api.StageEncodingResults {
		kind = api.ErrorKindOutputSerialization
	}
	return &api.StructuredError{
		Kind:         kind,
		Message:      err.Error(),
		ProcessStage: stage,
	}
}
