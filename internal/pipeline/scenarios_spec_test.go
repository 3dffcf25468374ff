package pipeline

import (
	"context"
	"errors"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"grantreview/internal/review"
	"grantreview/internal/scoring"
)

var _ = ginkgo.Describe("Review pipeline", func() {
	var (
		collab Collaborators
		comp   *fakeCompleter
	)

	ginkgo.BeforeEach(func() {
		collab, comp, _ = happyCollaborators()
	})

	ginkgo.Describe("risk aggregation", func() {
		ginkgo.It("scores a strong, well-formed proposal as medium risk without escalation", func() {
			th := scoring.DefaultThresholds()
			b := th.Combine(90, 95, 85, 90)
			overall := b.Total()

			gomega.Expect(overall).To(gomega.BeNumerically("~", 86.05, 1e-9))
			gomega.Expect(th.Level(overall)).To(gomega.Equal(review.RiskMedium))
			gomega.Expect(scoring.DefaultPolicy().RequiresNotification(overall, th.Level(overall))).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("retrieval", func() {
		ginkgo.It("requires review with capped confidence when search returns no passages", func() {
			collab.Searcher = &fakeSearcher{}
			rep, err := newTestController(collab, Config{}).Run(context.Background(), testDocument())

			gomega.Expect(err).To(gomega.Succeed())
			gomega.Expect(rep.Compliance.OverallStatus).To(gomega.Equal(review.RequiresReview))
			gomega.Expect(rep.Compliance.ConfidenceScore).To(gomega.BeNumerically("<=", 50))
		})
	})

	ginkgo.Describe("completion failure", func() {
		ginkgo.It("marks compliance failed and still returns a report", func() {
			comp.compliance, comp.compErr = nil, errors.New("deadline exceeded")
			rep, err := newTestController(collab, Config{}).Run(context.Background(), testDocument())

			gomega.Expect(err).To(gomega.Succeed())
			gomega.Expect(rep).NotTo(gomega.BeNil())
			gomega.Expect(rep.StageStatus[review.StageCompliance].Status).To(gomega.Equal(review.StageFailed))
			gomega.Expect(rep.Compliance.OverallStatus).To(gomega.Equal(review.RequiresReview))
			gomega.Expect(rep.Compliance.ConfidenceScore).To(gomega.BeZero())
			gomega.Expect(rep.Risk).NotTo(gomega.BeNil())
			gomega.Expect(rep.Notification).NotTo(gomega.BeNil())
		})
	})

	ginkgo.Describe("extraction failure", func() {
		ginkgo.It("aborts with a fatal error and populates no later sections", func() {
			collab.Extractor = &fakeExtractor{err: errors.New("unreadable scan")}
			rep, err := newTestController(collab, Config{}).Run(context.Background(), testDocument())

			gomega.Expect(IsExtractionError(err)).To(gomega.BeTrue())
			gomega.Expect(rep.OverallStatus).To(gomega.Equal(review.StatusFailed))
			gomega.Expect(rep.Summary).To(gomega.BeNil())
			gomega.Expect(rep.Compliance).To(gomega.BeNil())
			gomega.Expect(rep.Risk).To(gomega.BeNil())
			gomega.Expect(rep.Notification).To(gomega.BeNil())
			gomega.Expect(comp.kinds).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("escalation", func() {
		ginkgo.It("always notifies below the medium-high boundary", func() {
			comp.compliance = nonCompliantCompletion()
			rep, err := newTestController(collab, Config{}).Run(context.Background(), testDocument())

			gomega.Expect(err).To(gomega.Succeed())
			gomega.Expect(rep.Risk.OverallScore).To(gomega.BeNumerically("<", 60))
			gomega.Expect(rep.Risk.RequiresNotification).To(gomega.BeTrue())
			gomega.Expect(rep.Notification.Subject).To(gomega.HavePrefix("[URGENT] "))
		})
	})
})
