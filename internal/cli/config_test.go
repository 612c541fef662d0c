package cli_test

import (
	"time"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RunConfig", func() {
	It("accepts the zero value", func() {
		Expect(cli.RunConfig{}.Validate()).To(Succeed())
	})

	It("accepts every supported enumeration", func() {
		cfg := cli.RunConfig{TestType: "API", Browser: "webkit", Environment: "stg", Parallel: 4, MaxRetries: 3}
		Expect(cfg.Validate()).To(Succeed())

		cfg = cli.RunConfig{GroupBy: "Tags", Tags: "@smoke"}
		Expect(cfg.Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid values",
		func(cfg cli.RunConfig, title string) {
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())

			configErr, ok := errors.AsConfigurationError(err)
			Expect(ok).To(BeTrue())
			Expect(configErr.Error()).To(ContainSubstring(title))
		},
		Entry("test type", cli.RunConfig{TestType: "load"}, `Unknown test type "load"`),
		Entry("grouping", cli.RunConfig{GroupBy: "random"}, `Unknown grouping "random"`),
		Entry("grouping by tags without tags", cli.RunConfig{GroupBy: "tags", Tags: " , "}, "Missing tags"),
		Entry("browser", cli.RunConfig{Browser: "lynx"}, `Unknown browser "lynx"`),
		Entry("environment", cli.RunConfig{Environment: "qa"}, `Unknown environment "qa"`),
		Entry("parallel", cli.RunConfig{Parallel: -1}, "Invalid parallel count"),
		Entry("retries", cli.RunConfig{MaxRetries: -2}, "Invalid retry count"),
		Entry("threshold", cli.RunConfig{FlakinessThreshold: 1.5}, "Invalid flakiness threshold"),
		Entry("group timeout", cli.RunConfig{GroupTimeout: -time.Second}, "Invalid group timeout"),
	)
})
