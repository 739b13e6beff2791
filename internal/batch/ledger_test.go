package batch

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("JSONLedger", func() {
	var (
		tmpDir string
		path   string
		clock  *fakeClock
		ledger *JSONLedger
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		path = filepath.Join(tmpDir, ProgressFileName)
		clock = &fakeClock{now: time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC)}
		ledger = NewJSONLedgerWithTime(path, clock)
	})

	Describe("Load", func() {
		var (
			processed []string
			err       error
		)

		JustBeforeEach(func() {
			processed, err = ledger.Load()
		})

		When("no ledger was saved yet", func() {
			It("returns an empty set", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(processed).To(BeEmpty())
			})
		})

		When("a ledger was saved", func() {
			BeforeEach(func() {
				Expect(ledger.Save([]string{"a.png", "b.jpg"})).To(Succeed())
			})

			It("returns the saved identifiers in order", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(processed).To(Equal([]string{"a.png", "b.jpg"}))
			})
		})

		When("the ledger has a zone-less timestamp", func() {
			BeforeEach(func() {
				content := `{"processed": ["a.png"], "last_updated": "2024-01-15T10:20:30.123456"}`
				Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
			})

			It("still loads the identifiers", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(processed).To(Equal([]string{"a.png"}))
			})
		})

		When("the ledger is not valid JSON", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(path, []byte(`{"processed": ["a.png"`), 0644)).To(Succeed())
			})

			It("returns ErrLedgerCorrupt", func() {
				Expect(errors.Is(err, ErrLedgerCorrupt)).To(BeTrue())
			})
		})

		When("the processed field has the wrong type", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(path, []byte(`{"processed": "a.png"}`), 0644)).To(Succeed())
			})

			It("returns ErrLedgerCorrupt", func() {
				Expect(errors.Is(err, ErrLedgerCorrupt)).To(BeTrue())
			})
		})
	})

	Describe("Save", func() {
		var err error

		JustBeforeEach(func() {
			err = ledger.Save([]string{"a.png"})
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes the processed list and timestamp", func() {
			data, readErr := os.ReadFile(path)
			Expect(readErr).NotTo(HaveOccurred())

			var progress Progress
			Expect(json.Unmarshal(data, &progress)).To(Succeed())
			Expect(progress.Processed).To(Equal([]string{"a.png"}))
			Expect(progress.LastUpdated).To(BeTemporally("==", clock.now))
		})

		It("leaves no temporary files behind", func() {
			entries, readErr := os.ReadDir(tmpDir)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal(ProgressFileName))
		})

		When("saving a grown set over an earlier one", func() {
			It("replaces the file", func() {
				Expect(ledger.Save([]string{"a.png", "b.png"})).To(Succeed())
				processed, loadErr := ledger.Load()
				Expect(loadErr).NotTo(HaveOccurred())
				Expect(processed).To(Equal([]string{"a.png", "b.png"}))
			})
		})

		When("the directory does not exist", func() {
			BeforeEach(func() {
				ledger = NewJSONLedger(filepath.Join(tmpDir, "missing", ProgressFileName))
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("creating temp progress file")))
			})
		})
	})
})

var _ = Describe("syncDir", func() {
	It("flushes an existing directory", func() {
		Expect(syncDir(GinkgoT().TempDir())).To(Succeed())
	})

	It("reports a directory that is gone", func() {
		err := syncDir(filepath.Join(GinkgoT().TempDir(), "missing"))
		Expect(err).To(MatchError(ContainSubstring("syncing progress directory")))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})
