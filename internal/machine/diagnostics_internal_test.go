package machine

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PowerFactor", func() {
	DescribeTable("signs P/|S| like Q",
		func(power complex128, want float64) {
			m := &Model{power: power}
			Expect(m.PowerFactor()).To(BeNumerically("~", want, 1e-12))
		},
		Entry("lagging motor", complex(3, 4), 0.6),
		Entry("leading motor", complex(3, -4), -0.6),
		Entry("generating, absorbing vars", complex(-3, 4), -0.6),
		Entry("purely real power", complex(5, 0), 0.0),
		Entry("purely real generation", complex(-5, 0), 0.0),
		Entry("no power", complex(0, 0), 0.0),
	)
})
