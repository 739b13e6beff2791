package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/bmp"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

var _ = Describe("prepareImageData", func() {
	var (
		imageData   []byte
		contentType string
		result      []byte
		format      string
		err         error
	)

	JustBeforeEach(func() {
		result, format, err = prepareImageData(imageData, contentType)
	})

	When("the image is already PNG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(png.Encode(&buf, testImage())).To(Succeed())
			imageData = buf.Bytes()
			contentType = "image/png"
		})

		It("passes it through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(result).To(Equal(imageData))
		})
	})

	When("the image is JPEG", func() {
		BeforeEach(func() {
			imageData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}
			contentType = "IMAGE/JPEG "
		})

		It("passes it through as jpeg", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("jpeg"))
			Expect(result).To(Equal(imageData))
		})
	})

	When("the image is GIF", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(gif.Encode(&buf, testImage(), nil)).To(Succeed())
			imageData = buf.Bytes()
			contentType = "image/gif"
		})

		It("converts it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(result[:4]).To(Equal(pngMagic))
		})
	})

	When("the image is BMP", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(bmp.Encode(&buf, testImage())).To(Succeed())
			imageData = buf.Bytes()
			contentType = "image/bmp"
		})

		It("converts it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(result[:4]).To(Equal(pngMagic))
		})
	})

	When("the data cannot be decoded", func() {
		BeforeEach(func() {
			imageData = []byte("definitely not an image")
			contentType = "image/tiff"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("converting image to PNG"))
		})
	})

	When("the data is empty", func() {
		BeforeEach(func() {
			imageData = nil
			contentType = "image/png"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("image is empty")))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects a heic ftyp box", func() {
		data := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("rejects other data", func() {
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		Expect(isHEICFormat([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0})).To(BeFalse())
	})
})
