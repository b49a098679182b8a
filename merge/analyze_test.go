package merge_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/capability"
	"github.com/make-os/grasp/merge"
)

const sampleDiff = `diff --git a/c.txt b/c.txt
new file mode 100644
--- /dev/null
+++ b/c.txt
@@ -0,0 +1,1 @@
+hello
`

var _ = Describe("AnalyzePatchMergeability", func() {
	It("rejects content that does not start with diff --git", func() {
		p := &merge.Patch{CommitID: "c1", RawDiff: "not a diff"}
		fp := &fakeProvider{branches: []capability.Branch{{Name: "main", CommitID: "m1"}}}
		res, err := merge.AnalyzePatchMergeability(context.Background(), fp, "/tmp/r", p, "main", nil)
		Expect(err).To(BeNil())
		Expect(res.Analysis).To(Equal(merge.AnalysisError))
	})

	It("reports up-to-date when the target log already contains the patch commit", func() {
		p := &merge.Patch{CommitID: "c1", RawDiff: sampleDiff}
		fp := &fakeProvider{
			branches: []capability.Branch{{Name: "main", CommitID: "m1"}},
			logs:     map[string][]*capability.CommitInfo{"main": {{Hash: "c1"}}},
		}
		res, err := merge.AnalyzePatchMergeability(context.Background(), fp, "/tmp/r", p, "main", nil)
		Expect(err).To(BeNil())
		Expect(res.Analysis).To(Equal(merge.AnalysisUpToDate))
		Expect(res.UpToDate).To(BeTrue())
	})

	It("reports fast-forward clean when target tip is an ancestor of the patch tip", func() {
		p := &merge.Patch{CommitID: "c2", Parents: []string{"m1"}, RawDiff: sampleDiff}
		fp := &fakeProvider{
			branches: []capability.Branch{{Name: "main", CommitID: "m1"}},
			logs:     map[string][]*capability.CommitInfo{"main": {{Hash: "m1"}}},
		}
		res, err := merge.AnalyzePatchMergeability(context.Background(), fp, "/tmp/r", p, "main", nil)
		Expect(err).To(BeNil())
		Expect(res.Analysis).To(Equal(merge.AnalysisClean))
		Expect(res.FastForward).To(BeTrue())
	})

	It("flags a conflict when the patch adds a file that already exists on target", func() {
		p := &merge.Patch{CommitID: "c3", Parents: []string{"zzz"}, RawDiff: sampleDiff}
		fp := &fakeProvider{
			branches: []capability.Branch{{Name: "main", CommitID: "m1"}},
			logs:     map[string][]*capability.CommitInfo{"main": {{Hash: "m1"}}},
			blobs:    map[string]map[string]string{"main": {"c.txt": "different content"}},
		}
		res, err := merge.AnalyzePatchMergeability(context.Background(), fp, "/tmp/r", p, "main", nil)
		Expect(err).To(BeNil())
		Expect(res.Analysis).To(Equal(merge.AnalysisConflict))
		Expect(res.ConflictFiles).To(ConsistOf("c.txt"))
	})
})

var _ = Describe("ResolveBranch", func() {
	It("falls back through main/master/develop/dev, then the first listed branch", func() {
		available := []capability.Branch{{Name: "develop"}, {Name: "feature-x"}}
		Expect(merge.ResolveBranch("missing", available)).To(Equal("develop"))

		availableNoDefaults := []capability.Branch{{Name: "feature-x"}}
		Expect(merge.ResolveBranch("missing", availableNoDefaults)).To(Equal("feature-x"))
	})
})
