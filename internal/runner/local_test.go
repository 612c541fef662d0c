package runner_test

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/runner"
	"github.com/rwx-research/conductor/internal/scheduler"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Runner with real processes", func() {
	var r *runner.Runner

	BeforeEach(func() {
		r = &runner.Runner{
			Log:        zaptest.NewLogger(GinkgoT()).Sugar(),
			TaskRunner: exec.Local{},
			Verbose:    true,
			Console:    new(strings.Builder),
		}
	})

	It("reports the exit code and combined output", func() {
		r.Commands = runner.CommandBuilder{Executor: `sh -c 'echo "1 scenario passed"; echo oops >&2; exit 3'`}

		result := r.RunGroup(context.Background(), scheduler.TestGroup{Name: "sh", Type: scheduler.GroupTypeMixed})

		Expect(result.State).To(Equal(runner.StateFailed))
		Expect(result.ReturnCode).To(Equal(3))
		Expect(result.Stdout).To(ContainSubstring("1 scenario passed\n"))
		Expect(result.Stdout).To(ContainSubstring("oops\n"))
	})

	It("kills groups that exceed the timeout", func() {
		r.Commands = runner.CommandBuilder{Executor: `sh -c 'echo starting; exec sleep 5'`}
		r.GroupTimeout = 200 * time.Millisecond

		result := r.RunGroup(context.Background(), scheduler.TestGroup{Name: "sleepy", Type: scheduler.GroupTypeMixed})

		Expect(result.State).To(Equal(runner.StateTimedOut))
		Expect(result.Stdout).To(Equal("starting\n"))
		Expect(result.DurationSeconds).To(BeNumerically("<", 5))
	})

	It("errors when the executable does not exist", func() {
		r.Commands = runner.CommandBuilder{Executor: "/does/not/exist"}

		result := r.RunGroup(context.Background(), scheduler.TestGroup{Name: "missing", Type: scheduler.GroupTypeMixed})

		Expect(result.State).To(Equal(runner.StateErrored))
		Expect(result.Error).NotTo(BeEmpty())
	})
})
