package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/factorystack/telemetry-core/internal/infrastructure/config"
	"github.com/factorystack/telemetry-core/internal/infrastructure/logging"
	"github.com/factorystack/telemetry-core/internal/infrastructure/mqtt"
	"github.com/factorystack/telemetry-core/internal/telemetry"
)

// ErrQueueFull is returned by Enqueue when the pipeline cannot accept
// another payload. New arrivals are rejected rather than evicting
// queued work, so a slow store sheds the freshest load first.
var ErrQueueFull = errors.New("ingest: queue full")

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("ingest: pipeline stopped")

// Pipeline decouples bus dispatch from store latency. The subscription
// callback only enqueues the raw payload into a bounded buffer; worker
// goroutines do the decoding, normalization and synchronous store
// write. A stalled store therefore never blocks the bus client's
// dispatch loop, it just fills the buffer until arrivals get dropped.
type Pipeline struct {
	queue  chan []byte
	writer *telemetry.Writer
	logger *logging.Logger
	cfg    config.IngestConfig

	dropped  atomic.Uint64
	accepted atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a pipeline writing through the given coordinator. It does
// not start workers; call Start.
func New(cfg config.IngestConfig, writer *telemetry.Writer, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		queue:  make(chan []byte, cfg.QueueSize),
		writer: writer,
		logger: logger.With("component", "ingest"),
		cfg:    cfg,
	}
}

// Start launches the worker goroutines. Their lifetime is owned by
// Stop, not the parent context: shutdown cancels the signal context
// before the deferred Stop runs, and the drain must still be able to
// write queued payloads. Worker writes therefore run on a context
// detached from the parent's cancellation.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("ingest pipeline started",
		"workers", p.cfg.Workers,
		"queue_size", p.cfg.QueueSize)
}

// Stop refuses new payloads, processes everything still buffered, and
// returns once the workers have finished. The drain proceeds even when
// the context passed to Start has already been cancelled.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("ingest pipeline stopped",
		"accepted", p.accepted.Load(),
		"dropped", p.dropped.Load())
}

// Enqueue offers a raw payload to the pipeline without blocking. The
// lock is held across the send so Stop cannot close the queue under a
// concurrent enqueue.
func (p *Pipeline) Enqueue(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- payload:
		p.accepted.Add(1)
		return nil
	default:
	}
	dropped := p.dropped.Add(1)
	p.logger.Warn("ingest queue full, payload dropped",
		"dropped_total", dropped,
		"queue_size", p.cfg.QueueSize)
	return ErrQueueFull
}

// Handler adapts the pipeline to the bus client's callback signature.
// It must stay cheap: anything slow belongs in the workers.
func (p *Pipeline) Handler() mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		// Copy: the bus client may reuse the payload buffer after
		// the callback returns.
		buf := make([]byte, len(payload))
		copy(buf, payload)
		return p.Enqueue(buf)
	}
}

// Dropped reports how many payloads overflow has discarded.
func (p *Pipeline) Dropped() uint64 {
	return p.dropped.Load()
}

// worker exits only when the queue is closed by Stop, so everything
// buffered at shutdown still gets processed.
func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With("worker", id)
	for payload := range p.queue {
		p.process(ctx, log, payload)
	}
}

// process decodes one payload and writes the records it yields.
// Failures are logged and dropped: the bus offers no reply channel, and
// a poison payload must never wedge the queue.
func (p *Pipeline) process(ctx context.Context, log *logging.Logger, payload []byte) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		log.Warn("malformed payload dropped", "error", err, "bytes", len(payload))
		return
	}

	input, err := telemetry.ParseFlatPayload(decoded, p.cfg.DefaultDeviceID)
	if err != nil {
		log.Warn("unusable payload dropped", "error", err)
		return
	}

	records, err := telemetry.NormalizeMulti(input)
	if err != nil && len(records) == 0 {
		log.Warn("payload yielded no records", "error", err)
		return
	}
	if err != nil {
		// Partial: good siblings survive bad metrics.
		log.Warn("some metrics rejected", "error", err, "written", len(records))
	}

	if err := p.writer.WriteRecords(ctx, records...); err != nil {
		log.Error("store write failed, records dropped",
			"error", err,
			"device_id", records[0].DeviceID,
			"records", len(records))
		return
	}
	log.Debug("records written", "device_id", records[0].DeviceID, "records", len(records))
}
