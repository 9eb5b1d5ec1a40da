package scanner_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sgchandra/anatomify/internal/scanner"
	"github.com/sgchandra/anatomify/pkg/logger"
)

func scannerTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[scanner-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	return log
}

var _ = Describe("Directory Scanner", func() {
	var (
		tempDir     string
		dirScanner  *scanner.DirectoryScanner
		createFiles func(names ...string)
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "anatomify-scanner-test-*")
		Expect(err).NotTo(HaveOccurred())

		dirScanner = scanner.New(scannerTestLogger())

		createFiles = func(names ...string) {
			for _, name := range names {
				path := filepath.Join(tempDir, name)
				Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
				Expect(os.WriteFile(path, []byte("x"), 0644)).To(Succeed())
			}
		}
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	It("finds supported documents recursively with relative paths", func() {
		createFiles("atlas.pdf", "scan.png", "notes.txt", filepath.Join("nested", "photo.jpg"))

		docs, err := dirScanner.FindDocuments(context.Background(), tempDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(3))

		byRel := make(map[string]string)
		for _, d := range docs {
			byRel[d.RelativePath] = d.MediaType
		}
		Expect(byRel).To(HaveKeyWithValue("atlas.pdf", "application/pdf"))
		Expect(byRel).To(HaveKeyWithValue("scan.png", "image/png"))
		Expect(byRel).To(HaveKeyWithValue(filepath.Join("nested", "photo.jpg"), "image/jpeg"))
	})

	It("errors when nothing supported is found", func() {
		createFiles("readme.md")

		_, err := dirScanner.FindDocuments(context.Background(), tempDir)
		Expect(err).To(HaveOccurred())
	})

	It("honors context cancellation", func() {
		createFiles("atlas.pdf")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dirScanner.FindDocuments(ctx, tempDir)
		Expect(err).To(MatchError(context.Canceled))
	})
})
