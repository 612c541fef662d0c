package vcs_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/rwx-research/conductor/internal/vcs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HeadRevision", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("finds the commit from a nested directory", func() {
		repo, err := git.PlainInit(dir, false)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644)).To(Succeed())

		worktree, err := repo.Worktree()
		Expect(err).NotTo(HaveOccurred())
		_, err = worktree.Add("README.md")
		Expect(err).NotTo(HaveOccurred())

		hash, err := worktree.Commit("initial commit", &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
		})
		Expect(err).NotTo(HaveOccurred())

		nested := filepath.Join(dir, "features", "steps")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		revision, err := vcs.HeadRevision(nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(revision.Commit).To(Equal(hash.String()))
		Expect(revision.Branch).To(Equal("master"))
		Expect(vcs.HeadCommit(nested)).To(Equal(hash.String()))
	})

	It("has no commit outside of a repository", func() {
		_, err := vcs.HeadRevision(dir)
		Expect(err).To(HaveOccurred())
		Expect(vcs.HeadCommit(dir)).To(BeEmpty())
	})
})
