package batch

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = DefaultConfig("invoices", "output")
	})

	It("has the default quota settings", func() {
		Expect(cfg.RequestsPerMinute).To(Equal(15))
		Expect(cfg.MaxAttempts).To(Equal(3))
		Expect(cfg.RetryDelay).To(Equal(60 * time.Second))
		Expect(cfg.MaxItems).To(Equal(0))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("derives the output paths", func() {
		Expect(cfg.ProgressPath()).To(Equal(filepath.Join("output", "progress.json")))
		Expect(cfg.ResultsPath()).To(Equal(filepath.Join("output", "invoice_data.csv")))
		Expect(cfg.WorkbookPath()).To(Equal(filepath.Join("output", "invoice_data.xlsx")))
		Expect(cfg.HistoryPath()).To(Equal(filepath.Join("output", "history.db")))
		Expect(cfg.LogPath()).To(Equal(filepath.Join("output", "processing.log")))
	})

	DescribeTable("Validate rejects",
		func(mutate func(*Config)) {
			mutate(&cfg)
			Expect(errors.Is(cfg.Validate(), ErrInvalidConfig)).To(BeTrue())
		},
		Entry("missing input directory", func(c *Config) { c.InputDir = "" }),
		Entry("missing output directory", func(c *Config) { c.OutputDir = "" }),
		Entry("negative max items", func(c *Config) { c.MaxItems = -1 }),
		Entry("zero requests per minute", func(c *Config) { c.RequestsPerMinute = 0 }),
		Entry("zero attempts", func(c *Config) { c.MaxAttempts = 0 }),
		Entry("negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }),
	)
})
