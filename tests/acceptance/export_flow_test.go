package acceptance_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/internal/export"
	"github.com/sgchandra/anatomify/internal/gemini"
	"github.com/sgchandra/anatomify/internal/imaging"
	"github.com/sgchandra/anatomify/internal/pipeline"
	"github.com/sgchandra/anatomify/pkg/models"
)

const generatedCards = `[
	{"front":"Structure #1.","back":"Thalamus","tags":["neuro"],
	 "boundingBox":[100,100,200,200],
	 "structureBoundingBox":[400,400,450,450]},
	{"front":"Structure #2.","back":"Cerebellum","tags":["neuro"],
	 "boundingBox":[700,200,760,300],
	 "structureBoundingBox":[800,600,860,700]},
	{"front":"Which lobe handles vision?","back":"Occipital lobe","tags":["neuro","lobes"]}
]`

var _ = Describe("Image export flow", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "anatomify-acceptance-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	It("turns a diagram photo into a complete archive bundle", func() {
		server := newGenerationServer(generatedCards)
		defer server.Close()

		log := acceptanceTestLogger()
		client := gemini.NewClient(gemini.Config{
			BaseURL: server.URL,
			APIKey:  "test-key",
		}, log)

		path := writeDiagramPNG(tempDir, "brain diagram.png", 1000, 1000)
		src, err := document.NewLoader(log).Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(src.IsImage()).To(BeTrue())

		// The fake server answers the clean-plate call with text, so the
		// job must fall back to the original raster and still finish.
		orch := pipeline.New(client, client, imaging.NewAnnotator(log), export.NewSerializer(), log)

		artifact, cards, err := orch.Run(context.Background(), src, models.GenerationPrefs{CardCount: 3}, models.FormatArchive)
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.State()).To(Equal(pipeline.StateReady))

		Expect(cards).To(HaveLen(3))
		Expect(cards[0].Image).NotTo(BeEmpty())
		Expect(cards[1].Image).NotTo(BeEmpty())
		Expect(cards[2].Image).To(BeEmpty())

		By("producing a well-formed archive")
		Expect(artifact.Filename).To(Equal("brain_diagram_anki_pack.zip"))

		zr, err := zip.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
		Expect(err).NotTo(HaveOccurred())

		names := make(map[string]bool)
		var tsv string
		for _, f := range zr.File {
			names[f.Name] = true
			if strings.HasSuffix(f.Name, "_anki_import.txt") {
				rc, err := f.Open()
				Expect(err).NotTo(HaveOccurred())
				var buf bytes.Buffer
				_, err = buf.ReadFrom(rc)
				rc.Close()
				Expect(err).NotTo(HaveOccurred())
				tsv = buf.String()
			}
		}

		Expect(names).To(HaveLen(4))
		Expect(names).To(HaveKey("IMPORT_INSTRUCTIONS.txt"))

		By("referencing every bundled media file from the card file")
		refs := regexp.MustCompile(`img src="([^"]+)"`).FindAllStringSubmatch(tsv, -1)
		Expect(refs).To(HaveLen(2))
		for _, ref := range refs {
			Expect(names).To(HaveKey(ref[1]))
		}

		By("keeping generation order in the card file")
		lines := strings.Split(strings.TrimSuffix(tsv, "\n"), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(HavePrefix("Structure #1."))
		Expect(lines[1]).To(HavePrefix("Structure #2."))
		Expect(lines[2]).To(HavePrefix("Which lobe handles vision?"))

		orch.MarkDelivered()
		Expect(orch.State()).To(Equal(pipeline.StateDelivered))
	})

	It("exports text formats for the same card set", func() {
		server := newGenerationServer(generatedCards)
		defer server.Close()

		log := acceptanceTestLogger()
		client := gemini.NewClient(gemini.Config{BaseURL: server.URL, APIKey: "k"}, log)

		path := writeDiagramPNG(tempDir, "diagram.png", 400, 400)
		src, err := document.NewLoader(log).Load(path)
		Expect(err).NotTo(HaveOccurred())

		orch := pipeline.New(client, client, imaging.NewAnnotator(log), export.NewSerializer(), log)

		csvArtifact, _, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatCSV)
		Expect(err).NotTo(HaveOccurred())
		Expect(csvArtifact.Filename).To(Equal("diagram_anki_export.csv"))
		Expect(strings.Count(string(csvArtifact.Data), "\n")).To(Equal(3))

		mdArtifact, _, err := orch.Run(context.Background(), src, models.GenerationPrefs{}, models.FormatMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(mdArtifact.Filename).To(Equal("diagram_notes.md"))
		Expect(string(mdArtifact.Data)).To(ContainSubstring("Answer: Thalamus"))
	})
})
