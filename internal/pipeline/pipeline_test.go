package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/internal/export"
	"github.com/sgchandra/anatomify/internal/imaging"
	"github.com/sgchandra/anatomify/internal/pipeline"
	"github.com/sgchandra/anatomify/pkg/logger"
	"github.com/sgchandra/anatomify/pkg/models"
)

type fakeGenerator struct {
	cards []models.Flashcard
	err   error
}

func (g *fakeGenerator) GenerateCards(_ context.Context, _ []byte, _ string, _ models.GenerationPrefs) ([]models.Flashcard, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]models.Flashcard, len(g.cards))
	copy(out, g.cards)
	return out, nil
}

type fakeCleaner struct {
	data      []byte
	mediaType string
	err       error
	calls     int
	received  []byte
}

func (c *fakeCleaner) CleanImage(_ context.Context, img []byte, _ string) ([]byte, string, error) {
	c.calls++
	c.received = img
	if c.err != nil {
		return nil, "", c.err
	}
	return c.data, c.mediaType, nil
}

func pipelineTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[pipeline-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	return log
}

func whitePNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func box(vals ...float64) *models.Box {
	b := models.Box{vals[0], vals[1], vals[2], vals[3]}
	return &b
}

func drafts(n int) []models.Flashcard {
	cards := make([]models.Flashcard, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, models.Flashcard{
			ID:           fmt.Sprintf("card-%03d", i+1),
			Front:        fmt.Sprintf("Structure #%d.", i+1),
			Back:         fmt.Sprintf("Answer %d", i+1),
			Tags:         []string{"anatomy"},
			LabelBox:     box(0.1, 0.1, 0.2, 0.2),
			StructureBox: box(0.5, 0.5, 0.6, 0.6),
		})
	}
	return cards
}

var _ = Describe("Export Orchestrator", func() {
	var (
		log     *logger.Logger
		cleaner *fakeCleaner
		src     *document.Source
	)

	newOrchestrator := func(gen pipeline.Generator) *pipeline.Orchestrator {
		return pipeline.New(gen, cleaner, imaging.NewAnnotator(log), export.NewSerializer(), log)
	}

	BeforeEach(func() {
		log = pipelineTestLogger()
		cleaner = &fakeCleaner{data: whitePNG(600, 400), mediaType: "image/png"}
		src = &document.Source{
			Filename:  "diagram.png",
			MediaType: "image/png",
			Data:      whitePNG(800, 600),
		}
	})

	It("annotates every coordinate-bearing card and reaches Ready", func() {
		orch := newOrchestrator(&fakeGenerator{cards: drafts(3)})
		Expect(orch.State()).To(Equal(pipeline.StateIdle))

		artifact, cards, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatArchive)
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.State()).To(Equal(pipeline.StateReady))
		Expect(artifact.Filename).To(Equal("diagram_anki_pack.zip"))
		Expect(cleaner.calls).To(Equal(1))

		By("handing the cleaner the untouched source bytes")
		Expect(cleaner.received).To(Equal(src.Data))

		Expect(cards).To(HaveLen(3))
		for i, card := range cards {
			Expect(card.ID).To(Equal(fmt.Sprintf("card-%03d", i+1)))
			Expect(card.Image).NotTo(BeEmpty())
			Expect(card.ImageMediaType).To(Equal("image/png"))
		}

		orch.MarkDelivered()
		Expect(orch.State()).To(Equal(pipeline.StateDelivered))
	})

	It("keeps cards without coordinates image-free", func() {
		cards := drafts(2)
		cards[1].LabelBox = nil
		cards[1].StructureBox = nil
		orch := newOrchestrator(&fakeGenerator{cards: cards})

		_, result, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatMobileText)
		Expect(err).NotTo(HaveOccurred())

		Expect(result[0].Image).NotTo(BeEmpty())
		Expect(result[1].Image).To(BeEmpty())
	})

	It("falls back to the original raster when the clean plate fails", func() {
		cleaner.err = errors.New("cleaning service unavailable")
		orch := newOrchestrator(&fakeGenerator{cards: drafts(2)})

		_, cards, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatArchive)
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.State()).To(Equal(pipeline.StateReady))

		By("keeping the PNG source lossless through the fallback")
		for _, card := range cards {
			Expect(card.Image).NotTo(BeEmpty())
			Expect(card.ImageMediaType).To(Equal("image/png"))
			_, err := png.Decode(bytes.NewReader(card.Image))
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("keeps a text-only card when its annotation fails", func() {
		// A clean plate that is not a decodable raster makes every
		// annotation attempt fail while the job itself continues.
		cleaner.data = []byte("not an image")
		orch := newOrchestrator(&fakeGenerator{cards: drafts(2)})

		artifact, cards, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatMobileText)
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.State()).To(Equal(pipeline.StateReady))

		for _, card := range cards {
			Expect(card.Image).To(BeEmpty())
			Expect(card.Front).To(HavePrefix("Structure #"))
		}

		lines := strings.Split(strings.TrimSuffix(string(artifact.Data), "\n"), "\n")
		Expect(lines).To(HaveLen(2))
	})

	It("skips annotation entirely for PDF sources", func() {
		pdfSrc := &document.Source{
			Filename:  "atlas.pdf",
			MediaType: document.MediaTypePDF,
			Data:      []byte("%PDF-1.7"),
		}
		orch := newOrchestrator(&fakeGenerator{cards: drafts(1)})

		_, cards, err := orch.Run(context.Background(), pdfSrc, models.GenerationPrefs{}, models.FormatCSV)
		Expect(err).NotTo(HaveOccurred())
		Expect(cleaner.calls).To(Equal(0))
		Expect(cards[0].Image).To(BeEmpty())
	})

	It("fails the job when generation fails", func() {
		orch := newOrchestrator(&fakeGenerator{err: errors.New("service down")})

		_, _, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatCSV)
		Expect(err).To(HaveOccurred())
		Expect(orch.State()).To(Equal(pipeline.StateIdle))
	})

	It("preserves card order through the concurrent annotation batch", func() {
		orch := newOrchestrator(&fakeGenerator{cards: drafts(12)})

		artifact, cards, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatMobileText)
		Expect(err).NotTo(HaveOccurred())

		for i, card := range cards {
			Expect(card.ID).To(Equal(fmt.Sprintf("card-%03d", i+1)))
		}

		lines := strings.Split(strings.TrimSuffix(string(artifact.Data), "\n"), "\n")
		Expect(lines).To(HaveLen(12))
		for i, line := range lines {
			Expect(line).To(HavePrefix(fmt.Sprintf("Structure #%d.", i+1)))
		}
	})

	Context("AnnotateCard", func() {
		It("attaches the rendered raster to the card", func() {
			orch := newOrchestrator(&fakeGenerator{})
			card := drafts(1)[0]

			annotated, err := orch.AnnotateCard(card, whitePNG(500, 500), "image/png", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(annotated.Image).NotTo(BeEmpty())
			Expect(annotated.ImageMediaType).To(Equal("image/png"))
			Expect(card.Image).To(BeEmpty())
		})
	})
})
