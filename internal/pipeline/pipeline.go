// Package pipeline sequences one export job: generate cards, optionally
// clean and annotate the source image, and serialize the finished set.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/internal/export"
	"github.com/sgchandra/anatomify/internal/imaging"
	"github.com/sgchandra/anatomify/pkg/logger"
	"github.com/sgchandra/anatomify/pkg/models"
)

// State tracks where a job is. Transitions are linear:
// Idle -> Generating -> (Annotating) -> Ready -> Delivered.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateAnnotating State = "annotating"
	StateReady      State = "ready"
	StateDelivered  State = "delivered"
)

// Generator produces card drafts from a prepared document.
type Generator interface {
	GenerateCards(ctx context.Context, doc []byte, mediaType string, prefs models.GenerationPrefs) ([]models.Flashcard, error)
}

// Cleaner produces a clean plate for an image. Its failure is always
// non-fatal: callers substitute the original raster.
type Cleaner interface {
	CleanImage(ctx context.Context, img []byte, mediaType string) ([]byte, string, error)
}

// Orchestrator owns the working card set for the duration of one job.
// Every job is independent; no state survives between Run calls except
// the State marker of the most recent one.
type Orchestrator struct {
	gen        Generator
	cleaner    Cleaner
	annotator  *imaging.Annotator
	serializer *export.Serializer
	log        *logger.Logger
	limits     imaging.Limits
	state      State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimits applies configured raster bounds to the ingest stage.
func WithLimits(lim imaging.Limits) Option {
	return func(o *Orchestrator) {
		o.limits = lim
	}
}

func New(gen Generator, cleaner Cleaner, annotator *imaging.Annotator, serializer *export.Serializer, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:        gen,
		cleaner:    cleaner,
		annotator:  annotator,
		serializer: serializer,
		log:        log,
		limits:     imaging.DefaultLimits(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	return o.state
}

// MarkDelivered records that the caller has handed the artifact off.
func (o *Orchestrator) MarkDelivered() {
	if o.state == StateReady {
		o.state = StateDelivered
	}
}

// Run executes one export job end to end. It returns the artifact along
// with the finished card set, which callers may hand to the live Anki
// push; the orchestrator keeps no reference to either.
func (o *Orchestrator) Run(ctx context.Context, src *document.Source, prefs models.GenerationPrefs, format models.ExportFormat) (*models.ExportArtifact, []models.Flashcard, error) {
	o.state = StateGenerating

	prepared, preparedType, err := imaging.PrepareSource(src.Data, src.MediaType, o.limits)
	if err != nil {
		o.state = StateIdle
		return nil, nil, err
	}

	cards, err := o.gen.GenerateCards(ctx, prepared, preparedType, prefs)
	if err != nil {
		o.state = StateIdle
		return nil, nil, fmt.Errorf("generation failed for %s: %w", src.Filename, err)
	}

	// Annotation starts from the untouched source bytes, not the ingest
	// JPEG, so a PNG source never picks up a lossy generation before the
	// badge pass re-encodes it at its own media type.
	if src.IsImage() {
		o.state = StateAnnotating
		o.annotateAll(ctx, cards, src.Data, src.MediaType)
	}

	artifact, err := o.ProduceExport(cards, src.Filename, format)
	if err != nil {
		o.state = StateIdle
		return nil, nil, err
	}

	o.state = StateReady
	return artifact, cards, nil
}

// annotateAll renders the badge for every card that carries coordinates.
// The base image is the clean plate when the cleaner can produce one and
// the original raster otherwise. Cards are annotated concurrently; each
// task reads the shared base bytes and writes only its own slice index,
// so the joined set keeps generation order and badge numbers stay stable.
// A per-card failure downgrades that card to its un-annotated text.
func (o *Orchestrator) annotateAll(ctx context.Context, cards []models.Flashcard, base []byte, mediaType string) {
	cleanBase, cleanType := base, mediaType
	if o.cleaner != nil {
		data, mt, err := o.cleaner.CleanImage(ctx, base, mediaType)
		if err != nil {
			o.log.Warn("clean-plate generation failed, using original image: %v", err)
		} else {
			cleanBase, cleanType = data, mt
		}
	}

	var g errgroup.Group
	for i := range cards {
		if !cards[i].HasCoordinates() {
			continue
		}
		i := i
		g.Go(func() error {
			annotated, err := o.AnnotateCard(cards[i], cleanBase, cleanType, i+1)
			if err != nil {
				o.log.Warn("annotation failed for card %d, keeping text-only card: %v", i+1, err)
				return nil
			}
			cards[i] = annotated
			return nil
		})
	}
	// Annotation errors are absorbed per card above; Wait only joins.
	_ = g.Wait()
}

// AnnotateCard renders one card's marker onto the cleaned base image and
// returns the card with its rendered raster attached.
func (o *Orchestrator) AnnotateCard(card models.Flashcard, cleanedImage []byte, mediaType string, index int) (models.Flashcard, error) {
	data, err := o.annotator.Annotate(cleanedImage, mediaType, card.LabelBox, card.StructureBox, index)
	if err != nil {
		return card, err
	}
	if card.HasCoordinates() {
		card.Image = data
		card.ImageMediaType = mediaType
	}
	return card, nil
}

// ProduceExport serializes a card set without running generation, for
// callers that already hold finished cards.
func (o *Orchestrator) ProduceExport(cards []models.Flashcard, sourceFilename string, format models.ExportFormat) (*models.ExportArtifact, error) {
	artifact, err := o.serializer.Produce(cards, sourceFilename, format)
	if err != nil {
		return nil, fmt.Errorf("export failed for %s: %w", sourceFilename, err)
	}
	return artifact, nil
}
