package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"WeatherAlertWatch/internal/alerttype"
	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry        *alerttype.Registry
	History         ports.HistoryStore
	Dispatcher      ports.Dispatcher
	Pusher          ports.Pusher
	EmailOnSuccess  bool
	DuplicateSuffix string
	Logger          *slog.Logger
}

// Pipeline runs one released batch through dedup, artifact generation, history, push and
// reporting.
type Pipeline struct {
	registry        *alerttype.Registry
	history         ports.HistoryStore
	dispatcher      ports.Dispatcher
	pusher          ports.Pusher
	emailOnSuccess  bool
	duplicateSuffix string
	logger          *slog.Logger
	cycles          *fileio.Locks
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:        deps.Registry,
		history:         deps.History,
		dispatcher:      deps.Dispatcher,
		pusher:          deps.Pusher,
		emailOnSuccess:  deps.EmailOnSuccess,
		duplicateSuffix: deps.DuplicateSuffix,
		logger:          logger,
		cycles:          fileio.NewLocks(),
	}
}

// Ensure initialises the history of every registered event type.
func (p *Pipeline) Ensure(ctx context.Context) error {
	for _, t := range p.registry.Types() {
		if err := p.history.Ensure(ctx, t); err != nil {
			return fmt.Errorf("ensure history for %s: %w", t, err)
		}
	}
	return nil
}

// Release adapts the pipeline to the collector callback: one released batch is one cycle.
func (p *Pipeline) Release(ctx context.Context) func(domain.Batch) {
	return func(batch domain.Batch) {
		if err := p.ProcessBatch(ctx, batch); err != nil {
			p.logger.Warn("cycle finished with errors", "error", err)
		}
	}
}

// ProcessBatch handles a released batch. Observations are grouped by event type and each
// group is processed independently; the returned error joins every group failure.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch domain.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	logger := p.logger.With("cycle_id", uuid.NewString())
	logger.Info("batch released", "files", len(batch))

	var order []domain.EventType
	groups := map[domain.EventType]domain.Batch{}
	for _, obs := range batch {
		if _, ok := groups[obs.EventType]; !ok {
			order = append(order, obs.EventType)
		}
		groups[obs.EventType] = append(groups[obs.EventType], obs)
	}

	var errs []error
	for _, t := range order {
		if err := p.processGroup(ctx, logger.With("event_type", string(t)), t, groups[t]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) processGroup(ctx context.Context, logger *slog.Logger, event domain.EventType, batch domain.Batch) error {
	handler, err := p.registry.Resolve(event)
	if err != nil {
		p.dispatcher.Dispatch(ctx, domain.Outcome{
			EventType:   event,
			Message:     fmt.Sprintf("unsupported event type (weatherEvent: %s)", event),
			Identifiers: batch.Paths(),
			Rename:      batch.Paths(),
			SendEmail:   true,
		})
		return err
	}

	// Cycles of one event type run one at a time from history load to history persist, so an
	// overlapping cycle never persists a ledger built from a stale snapshot.
	release := p.cycles.Lock(string(event))
	defer release()

	ledger, err := p.history.Load(ctx, event)
	if err != nil {
		logger.Error("history load failed", "error", err)
		p.dispatcher.Dispatch(ctx, domain.Outcome{
			EventType:   event,
			Message:     fmt.Sprintf("failed to read processed history (error: %v)", err),
			Identifiers: []string{p.history.Location(event)},
			Rename:      batch.Paths(),
			SendEmail:   true,
		})
		return err
	}

	res := RunGate(batch, handler.Classify, ledger)
	if !res.Complete(len(batch)) {
		failure := res.Failure
		if failure == nil {
			failure = domain.NewError(domain.KindMalformedContent, "batch was only partially classified", nil)
		}
		logger.Warn("batch aborted", "error", failure)
		p.dispatcher.Dispatch(ctx, p.gateOutcome(event, batch, failure))
		return failure
	}

	logger.Info("batch classified", "formal", len(res.Formal.Records), "test", len(res.Test.Records))

	var formalErr, testErr error
	var g errgroup.Group
	if len(res.Formal.Records) > 0 {
		g.Go(func() error {
			formalErr = p.processFormal(ctx, logger, handler, res.Formal, ledger)
			return nil
		})
	}
	if len(res.Test.Records) > 0 {
		g.Go(func() error {
			testErr = p.processTest(ctx, logger, handler, res.Test)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(formalErr, testErr)
}

func (p *Pipeline) gateOutcome(event domain.EventType, batch domain.Batch, failure error) domain.Outcome {
	o := domain.Outcome{
		EventType:   event,
		Identifiers: batch.Paths(),
		Rename:      batch.Paths(),
		SendEmail:   true,
	}

	var de *domain.Error
	errors.As(failure, &de)
	switch domain.KindOf(failure) {
	case domain.KindDuplicateIdentifier:
		o.Message = fmt.Sprintf("duplicate identifier found (identifier: %s)", de.Detail)
		o.RenameAs = p.duplicateSuffix
	case domain.KindMissingIdentifier:
		o.Message = "failed to extract identifier"
	case domain.KindUnsupportedEventType:
		o.Message = fmt.Sprintf("unsupported event type (error: %v)", failure)
	default:
		o.Message = fmt.Sprintf("failed to parse CAP content (error: %v)", failure)
	}
	return o
}

func (p *Pipeline) processFormal(ctx context.Context, logger *slog.Logger, handler alerttype.Handler, part domain.Partition, ledger domain.Ledger) error {
	event := handler.Type()
	ids := part.Identifiers()

	if _, err := handler.Generate(ctx, part); err != nil {
		logger.Error("formal generation failed", "error", err)
		p.dispatcher.Dispatch(ctx, domain.Outcome{
			EventType:   event,
			Message:     fmt.Sprintf("failed to generate broadcast text files (error: %v)", err),
			Identifiers: ids,
			Rename:      part.Paths(),
			SendEmail:   true,
		})
		return err
	}

	var persistErr, pushErr error
	var g errgroup.Group
	g.Go(func() error {
		persistErr = p.history.Persist(ctx, event, ledger.RecordAll(ids))
		return nil
	})
	if p.pusher != nil {
		g.Go(func() error {
			code, msg := handler.PushMessage(part)
			pushErr = p.pusher.Push(ctx, code, msg)
			return nil
		})
	}
	_ = g.Wait()

	historyOutcome := domain.Outcome{
		EventType:   event,
		Message:     "broadcast text files generated and history recorded",
		Identifiers: ids,
		Rename:      part.Paths(),
		Succeeded:   true,
		SendEmail:   p.emailOnSuccess,
	}
	if persistErr != nil {
		logger.Error("history persist failed", "error", persistErr)
		historyOutcome.Message = fmt.Sprintf("broadcast text files generated but history write failed (error: %v)", persistErr)
		historyOutcome.SendEmail = true
	}

	var d errgroup.Group
	d.Go(func() error {
		p.dispatcher.Dispatch(ctx, historyOutcome)
		return nil
	})
	if p.pusher != nil {
		pushOutcome := domain.Outcome{
			EventType:   event,
			Message:     "push notification sent",
			Identifiers: ids,
			Succeeded:   true,
			SendEmail:   p.emailOnSuccess,
		}
		if pushErr != nil {
			logger.Warn("push failed", "error", pushErr)
			pushOutcome.Message = fmt.Sprintf("push notification failed (error: %v)", pushErr)
			pushOutcome.Succeeded = false
			pushOutcome.SendEmail = true
		}
		d.Go(func() error {
			p.dispatcher.Dispatch(ctx, pushOutcome)
			return nil
		})
	}
	_ = d.Wait()

	logger.Info("formal partition done", "identifiers", ids)
	return persistErr
}

func (p *Pipeline) processTest(ctx context.Context, logger *slog.Logger, handler alerttype.Handler, part domain.Partition) error {
	ids := part.Identifiers()

	_, err := handler.Generate(ctx, part)
	o := domain.Outcome{
		EventType:   handler.Type(),
		Message:     "(test data) broadcast text files generated",
		Identifiers: ids,
		Rename:      part.Paths(),
		Succeeded:   err == nil,
		SendEmail:   p.emailOnSuccess,
	}
	if err != nil {
		logger.Error("test generation failed", "error", err)
		o.Message = fmt.Sprintf("(test data) failed to generate broadcast text files (error: %v)", err)
		o.SendEmail = true
	}
	p.dispatcher.Dispatch(ctx, o)

	logger.Info("test partition done", "identifiers", ids)
	return err
}
