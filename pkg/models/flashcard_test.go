package models_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sgchandra/anatomify/pkg/models"
)

var _ = Describe("Flashcard Models", func() {
	Context("Box", func() {
		It("exposes its components by name", func() {
			box := models.Box{0.1, 0.2, 0.3, 0.4}
			Expect(box.MinRow()).To(Equal(0.1))
			Expect(box.MinCol()).To(Equal(0.2))
			Expect(box.MaxRow()).To(Equal(0.3))
			Expect(box.MaxCol()).To(Equal(0.4))
		})

		It("unmarshals from the service's four-element array", func() {
			var card models.Flashcard
			raw := `{"id":"card-001","front":"F","back":"B","tags":["t"],
				"boundingBox":[100,100,200,200]}`

			Expect(json.Unmarshal([]byte(raw), &card)).To(Succeed())
			Expect(card.LabelBox).NotTo(BeNil())
			Expect(*card.LabelBox).To(Equal(models.Box{100, 100, 200, 200}))
			Expect(card.StructureBox).To(BeNil())
		})
	})

	Context("Flashcard", func() {
		It("is annotation-eligible only with a label box", func() {
			card := models.Flashcard{Front: "F", Back: "B"}
			Expect(card.HasCoordinates()).To(BeFalse())

			box := models.Box{0.1, 0.1, 0.2, 0.2}
			card.LabelBox = &box
			Expect(card.HasCoordinates()).To(BeTrue())
		})
	})

	Context("ExportFormat", func() {
		DescribeTable("ParseExportFormat",
			func(input string, ok bool) {
				_, err := models.ParseExportFormat(input)
				if ok {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(err).To(HaveOccurred())
				}
			},
			Entry("csv", "csv", true),
			Entry("mobile-text", "mobile-text", true),
			Entry("markdown", "markdown", true),
			Entry("archive", "archive", true),
			Entry("unknown", "xlsx", false),
			Entry("empty", "", false),
		)
	})
})
