package exec_test

import (
	"context"
	"strings"
	"time"

	"github.com/rwx-research/conductor/internal/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Local", func() {
	var (
		ctx    context.Context
		runner exec.Local
		stdout *strings.Builder
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = exec.Local{}
		stdout = new(strings.Builder)
	})

	It("passes environment overrides to the sub-process", func() {
		cmd, err := runner.NewCommand(ctx, exec.CommandConfig{
			Name:   "sh",
			Args:   []string{"-c", "echo $API_ONLY $SKIP_BROWSER"},
			Env:    []string{"API_ONLY=true", "SKIP_BROWSER=true"},
			Stdout: stdout,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(cmd.Start()).To(Succeed())
		Expect(cmd.Wait()).To(Succeed())
		Expect(stdout.String()).To(Equal("true true\n"))
	})

	It("extracts the exit status of a failed command", func() {
		cmd, err := runner.NewCommand(ctx, exec.CommandConfig{Name: "sh", Args: []string{"-c", "exit 3"}})
		Expect(err).NotTo(HaveOccurred())

		Expect(cmd.Start()).To(Succeed())
		waitErr := cmd.Wait()
		Expect(waitErr).To(HaveOccurred())

		code, err := runner.GetExitStatusFromError(waitErr)
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(3))
	})

	It("rejects other errors when extracting an exit status", func() {
		_, err := runner.GetExitStatusFromError(context.Canceled)
		Expect(err).To(HaveOccurred())
	})

	It("kills the children of a cancelled command", func() {
		timeoutCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		cmd, err := runner.NewCommand(timeoutCtx, exec.CommandConfig{
			Name:   "sh",
			Args:   []string{"-c", "sleep 30 & wait"},
			Stdout: stdout,
		})
		Expect(err).NotTo(HaveOccurred())

		started := time.Now()
		Expect(cmd.Start()).To(Succeed())
		Expect(cmd.Wait()).To(HaveOccurred())

		// an orphaned sleep would hold stdout open until the wait delay expires
		Expect(time.Since(started)).To(BeNumerically("<", 5*time.Second))
	})

	It("fails to start missing executables", func() {
		cmd, err := runner.NewCommand(ctx, exec.CommandConfig{Name: "conductor-test-missing-executable"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Start()).To(HaveOccurred())
	})
})
