// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/check"
)

const defaultUpgradeFrom = "0.22.2"

// upgradeFrom returns the operator version upgrades start from.
func upgradeFrom() string {
	if v := os.Getenv("CHOP_OPERATOR_UPGRADE_FROM"); v != "" {
		return v
	}
	return defaultUpgradeFrom
}

var singleHostCounts = map[string]int{
	"statefulset": 1,
	"pod":         1,
	"service":     2,
}

// keepsRunningAcross creates the installation, runs change against the operator and checks the
// installation converges again without its pod being restarted.
func keepsRunningAcross(config string, change func()) {
	GinkgoHelper()
	chi := chiName(config)
	DeferCleanup(deleteCHI, chi)

	createAndCheck(config, check.Spec{ObjectCounts: singleHostCounts, DoNotDelete: true})
	pod := chiv1.PodName(chi, chi, 0, 0)
	startTime := podStartTime(pod)

	change()

	Expect(h.Driver.WaitStatus(ctx, chi, chiv1.StatusCompleted, 0)).To(Succeed())
	Expect(h.Driver.WaitObjects(ctx, chi, singleHostCounts, 0)).To(Succeed())
	Expect(podStartTime(pod)).To(Equal(startTime), "pod was restarted")
}

var _ = Describe("clickhouse-operator", Label("operator"), Serial, func() {

	It("test_008. operator restart", func() {
		Expect(h.SetOperatorVersion(ctx, h.Config.Operator.Version)).To(Succeed())

		keepsRunningAcross("configs/test-008-operator-restart.yaml", func() {
			By("restarting the operator")
			Expect(h.Operator.Restart(ctx)).To(Succeed())
		})
	})

	It("test_009. operator upgrade", func() {
		from := upgradeFrom()
		Expect(h.SetOperatorVersion(ctx, from)).To(Succeed())
		DeferCleanup(func() {
			Expect(h.SetOperatorVersion(ctx, h.Config.Operator.Version)).To(Succeed())
		})

		keepsRunningAcross("configs/test-009-operator-upgrade.yaml", func() {
			By("upgrading the operator from " + from + " to " + h.Config.Operator.Version)
			Expect(h.SetOperatorVersion(ctx, h.Config.Operator.Version)).To(Succeed())
		})
	})
})
