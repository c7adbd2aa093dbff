package services

import (
	"context"
	"log"
	"os"

	apperrors "photostamp-api/internal/errors"
	"photostamp-api/internal/models"
	"photostamp-api/internal/utils"
	"photostamp-api/internal/worker"
)

// Resolver turns a coordinate into a display place name.
type Resolver interface {
	Resolve(ctx context.Context, coords models.Coordinates) (string, error)
}

// Renderer burns a caption into an image.
type Renderer interface {
	Render(imageData []byte, orientation int, text string) (*models.StampedImage, error)
}

// PipelineService drives the per-photo state machine: extract metadata,
// resolve the place name, stamp the image, derive a download filename.
// Each task's run is independent; one bad photo never blocks the rest.
type PipelineService struct {
	resolver Resolver
	renderer Renderer
	extract  func([]byte) (models.CaptureMetadata, error)
	workers  int
	logger   *log.Logger
}

func NewPipelineService(resolver Resolver, renderer Renderer, workers int) *PipelineService {
	return &PipelineService{
		resolver: resolver,
		renderer: renderer,
		extract:  utils.ExtractData,
		workers:  workers,
		logger:   log.New(os.Stdout, "[Pipeline] ", log.LstdFlags),
	}
}

// Transition is the pure state-transition function for a task's lifecycle.
// Terminal states absorb every event; an event that does not apply to the
// current state leaves it unchanged.
func Transition(s models.Status, e models.Event) models.Status {
	if s.Terminal() {
		return s
	}

	switch e {
	case models.EventFailed:
		return models.StatusError
	case models.EventStart:
		if s == models.StatusIdle {
			return models.StatusReading
		}
	case models.EventExtracted:
		if s == models.StatusReading {
			return models.StatusGeocoding
		}
	case models.EventResolved:
		if s == models.StatusGeocoding {
			return models.StatusDrawing
		}
	case models.EventRendered:
		if s == models.StatusDrawing {
			return models.StatusReady
		}
	}
	return s
}

// Process runs one task through the full pipeline, mutating the task in
// place. A stage failure moves the task to the error state carrying that
// stage's message verbatim; there is no automatic retry.
func (p *PipelineService) Process(ctx context.Context, task *models.PhotoTask) {
	// A task that arrived already terminal (an intake failure, typically)
	// keeps its state and message.
	if task.Status.Terminal() {
		return
	}

	task.Status = Transition(task.Status, models.EventStart)

	meta, err := p.extract(task.Data)
	if err != nil {
		p.fail(task, err)
		return
	}
	if meta.Coordinates == nil {
		p.fail(task, apperrors.ErrCoordinateMissing)
		return
	}
	task.Status = Transition(task.Status, models.EventExtracted)

	location, err := p.resolver.Resolve(ctx, *meta.Coordinates)
	if err != nil {
		p.fail(task, err)
		return
	}
	task.Location = location
	task.Status = Transition(task.Status, models.EventResolved)

	stampText := location + " " + meta.CaptureDate
	result, err := p.renderer.Render(task.Data, meta.Orientation, stampText)
	if err != nil {
		p.fail(task, err)
		return
	}

	task.Result = result
	task.SuggestedFilename = utils.SuggestedFilename(location, meta.CaptureDate)
	task.Status = Transition(task.Status, models.EventRendered)

	p.logger.Printf("Stamped %s -> %s (%q)", task.FileName, task.SuggestedFilename, stampText)
}

// ProcessBatch runs tasks concurrently through a bounded worker pool after
// dropping duplicate filenames. Completion order is not guaranteed. The
// returned slice holds the (deduplicated) tasks in submission order.
func (p *PipelineService) ProcessBatch(ctx context.Context, tasks []*models.PhotoTask) []*models.PhotoTask {
	tasks = DedupeByFilename(tasks)

	pool := worker.NewPool(p.workers)
	for _, task := range tasks {
		pool.Submit(func() {
			p.Process(ctx, task)
		})
	}
	pool.Wait()

	return tasks
}

// DedupeByFilename drops tasks whose filename was already seen, keeping the
// first occurrence.
func DedupeByFilename(tasks []*models.PhotoTask) []*models.PhotoTask {
	seen := make(map[string]bool, len(tasks))
	unique := tasks[:0:0]
	for _, task := range tasks {
		if seen[task.FileName] {
			continue
		}
		seen[task.FileName] = true
		unique = append(unique, task)
	}
	return unique
}

func (p *PipelineService) fail(task *models.PhotoTask, err error) {
	task.Status = Transition(task.Status, models.EventFailed)
	task.ErrorMessage = err.Error()
	p.logger.Printf("Task %s failed: %v", task.FileName, err)
}
