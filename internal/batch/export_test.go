package batch

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/invoice-batch/internal/scanning"
)

var _ = Describe("ExportXLSX", func() {
	var (
		dir      string
		csvPath  string
		xlsxPath string
		exported int
		err      error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		csvPath = filepath.Join(dir, ResultsFileName)
		xlsxPath = filepath.Join(dir, WorkbookFileName)
	})

	JustBeforeEach(func() {
		exported, err = ExportXLSX(csvPath, xlsxPath, nil)
	})

	When("the result file has rows", func() {
		BeforeEach(func() {
			a := testInvoice("a.png")
			b := testInvoice("b.png")
			b.TotalAmount = "1 234,50"
			c := testInvoice("c.png")
			c.Category = scanning.OfficeSupplies
			c.TotalAmount = "unknown"
			Expect(NewCSVStore(csvPath).Append([]*scanning.InvoiceData{a, b, c})).To(Succeed())
		})

		It("exports every row", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(Equal(3))

			f, openErr := excelize.OpenFile(xlsxPath)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Invoices")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(4))
			Expect(rows[0][0]).To(Equal("invoice_file"))
			Expect(rows[1][0]).To(Equal("a.png"))
			Expect(rows[2][9]).To(Equal("1 234,50"))
		})

		It("summarizes per category", func() {
			f, openErr := excelize.OpenFile(xlsxPath)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Categories")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{
				{"category", "invoices", "total_amount", "unparsed_amounts"},
				{"Office Supplies", "1", "0", "1"},
				{"Utilities", "2", "1277", "0"},
			}))
		})
	})

	When("the result file was edited by hand", func() {
		BeforeEach(func() {
			content := strings.Join([]string{
				strings.Join(resultColumns, ","),
				`a.png,INV-1,03/20/2024,Says 5" Screens,Client,Utilities,high,"Electric, Water",why,10.00`,
				`b.png,INV-2,03/21/2024,Seller,Cli`,
			}, "\n")
			Expect(os.WriteFile(csvPath, []byte(content), 0644)).To(Succeed())
		})

		It("keeps rows with bare quotes and leaves out a torn last line", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(Equal(1))

			f, openErr := excelize.OpenFile(xlsxPath)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Invoices")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][3]).To(Equal(`Says 5" Screens`))
		})
	})

	When("no results were stored yet", func() {
		It("exports a header-only workbook", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(Equal(0))

			f, openErr := excelize.OpenFile(xlsxPath)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Invoices")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})
	})
})

var _ = DescribeTable("parseAmount",
	func(raw string, expected float64, ok bool) {
		v, parsed := parseAmount(raw)
		Expect(parsed).To(Equal(ok))
		if ok {
			Expect(v).To(BeNumerically("~", expected, 0.001))
		}
	},
	Entry("plain decimal", "1234.5", 1234.5, true),
	Entry("currency and thousands separator", "$1,234.50", 1234.50, true),
	Entry("decimal comma with space grouping", "1 234,50", 1234.50, true),
	Entry("thousands comma only", "1,234", 1234.0, true),
	Entry("currency suffix", "99.90 EUR", 99.90, true),
	Entry("dot grouping with decimal comma", "1.234,50", 1234.50, true),
	Entry("comma grouping with decimal dot", "1,234.50", 1234.50, true),
	Entry("several dot groups", "1.234.567", 1234567.0, true),
	Entry("several comma groups", "1,234,56", 123456.0, true),
	Entry("empty", "", 0.0, false),
	Entry("not a number", "unknown", 0.0, false),
)
