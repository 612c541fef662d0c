package scheduler_test

import (
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/scheduler"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadGroups", func() {
	It("decodes groups", func() {
		groups, err := scheduler.LoadGroups(strings.NewReader(`
groups:
  - name: Checkout
    tags: ["@checkout"]
    type: ui
  - name: Users
    features: [features/users.feature]
    type: api
  - name: Everything else
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(groups).To(HaveLen(3))
		Expect(groups[0]).To(Equal(scheduler.TestGroup{Name: "Checkout", Tags: []string{"@checkout"}, Type: scheduler.GroupTypeUI}))
		Expect(groups[1].Features).To(Equal([]string{"features/users.feature"}))
		Expect(groups[2].Type).To(Equal(scheduler.GroupTypeMixed))
		Expect(groups[2].Tags).To(BeEmpty())
	})

	It("rejects unknown keys", func() {
		_, err := scheduler.LoadGroups(strings.NewReader("groups:\n  - name: x\n    browser: firefox\n"))

		_, ok := errors.AsConfigurationError(err)
		Expect(ok).To(BeTrue())
	})

	It("rejects invalid groups", func() {
		_, err := scheduler.LoadGroups(strings.NewReader("groups:\n  - name: x\n    type: desktop\n"))

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`Unknown group type "desktop"`))
	})

	It("rejects empty files", func() {
		_, err := scheduler.LoadGroups(strings.NewReader(""))
		Expect(err).To(HaveOccurred())

		_, err = scheduler.LoadGroups(strings.NewReader("groups: []\n"))
		Expect(err).To(HaveOccurred())
	})
})
