package batch

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DirSource", func() {
	var (
		dir    string
		source *DirSource
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		source, err = NewDirSource(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("List", func() {
		When("the directory holds mixed files", func() {
			BeforeEach(func() {
				writeImages(dir, "c.PNG", "a.jpg", "b.jpeg", "d.gif", "e.bmp", "f.TIFF", "notes.txt", "scan.pdf", "g.tif")
				Expect(os.Mkdir(filepath.Join(dir, "nested.png"), 0755)).To(Succeed())
			})

			It("returns only allow-listed images, sorted by name", func() {
				items, err := source.List()
				Expect(err).NotTo(HaveOccurred())

				names := make([]string, len(items))
				for i, item := range items {
					names[i] = item.Name
				}
				Expect(names).To(Equal([]string{"a.jpg", "b.jpeg", "c.PNG", "d.gif", "e.bmp", "f.TIFF"}))
			})

			It("sets content type and absolute path", func() {
				items, err := source.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(items[0].ContentType).To(Equal("image/jpeg"))
				Expect(items[2].ContentType).To(Equal("image/png"))
				Expect(items[5].ContentType).To(Equal("image/tiff"))
				Expect(filepath.IsAbs(items[0].Path)).To(BeTrue())
				Expect(items[0].Path).To(Equal(filepath.Join(dir, "a.jpg")))
			})
		})

		When("the directory is empty", func() {
			It("returns no items", func() {
				items, err := source.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			})
		})

		When("the directory does not exist", func() {
			It("returns an error", func() {
				source, err := NewDirSource(filepath.Join(dir, "missing"))
				Expect(err).NotTo(HaveOccurred())
				_, err = source.List()
				Expect(err).To(MatchError(ContainSubstring("reading input directory")))
			})
		})
	})

	Describe("Read", func() {
		It("returns the file bytes", func() {
			writeImages(dir, "a.png")
			items, err := source.List()
			Expect(err).NotTo(HaveOccurred())

			data, err := source.Read(items[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("a.png"))
		})

		It("returns an error when the file vanished", func() {
			_, err := source.Read(WorkItem{Name: "gone.png", Path: filepath.Join(dir, "gone.png")})
			Expect(err).To(MatchError(ContainSubstring("reading file")))
		})
	})
})
