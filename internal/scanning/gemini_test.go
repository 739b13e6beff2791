package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewGemini", func() {
	It("requires an API key", func() {
		_, err := NewGemini("", "")
		Expect(err).To(MatchError("gemini api key is required"))
	})

	It("configures a low temperature model", func() {
		g, err := NewGemini("test-key", "")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(g.Close)

		Expect(g.model.Temperature).NotTo(BeNil())
		Expect(*g.model.Temperature).To(BeNumerically("~", 0.1, 1e-6))
		Expect(g.timeout).To(BeNumerically(">", 0))
	})
})
