// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/clickhouse"
)

const (
	oldImage = "clickhouse/clickhouse-server:23.3"
	newImage = "clickhouse/clickhouse-server:23.8"
)

var _ = Describe("ClickHouseInstallation", func() {

	It("test_001. 1 node", func() {
		createAndCheck("configs/test-001.yaml", check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 1,
				"pod":         1,
				"service":     2,
			},
			ConfigMaps: ptr.To(3),
			ConfigMapKeys: map[string][]string{
				chiv1.CommonConfigMapName("test-001"): {chiv1.GeneratedConfigFile(chiv1.SectionRemoteServers)},
			},
		})
	})

	It("test_002. useTemplates for pod, volume templates, and distribution", func() {
		createAndCheck("configs/test-002-tpl.yaml", check.Spec{
			PodCount: ptr.To(1),
			ApplyTemplates: []string{
				h.Config.ClickHouse.Template,
				"templates/tpl-log-volume.yaml",
				"templates/tpl-one-per-host.yaml",
			},
			PodImage:        h.Config.ClickHouse.Image,
			PodVolumes:      []string{"/var/log/clickhouse-server"},
			PodAntiAffinity: ptr.To(1),
		})
	})

	It("test_003. 4 nodes with custom layout definition", func() {
		createAndCheck("configs/test-003-complex-layout.yaml", check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 4,
				"pod":         4,
				"service":     5,
			},
		})
	})

	It("test_004. old syntax with volumeClaimTemplate is still supported", func() {
		createAndCheck("configs/test-004-tpl.yaml", check.Spec{
			PodCount:   ptr.To(1),
			PodVolumes: []string{"/var/lib/clickhouse"},
		})
	})

	It("test_006. clickhouse version upgrade using podTemplate change", func() {
		By("creating the initial installation")
		createAndCheck("configs/test-006-ch-upgrade-1.yaml", check.Spec{
			PodCount:    ptr.To(2),
			PodImage:    oldImage,
			DoNotDelete: true,
		})

		By("switching to a different podTemplate")
		createAndCheck("configs/test-006-ch-upgrade-2.yaml", check.Spec{
			PodCount:    ptr.To(2),
			PodImage:    newImage,
			DoNotDelete: true,
		})

		By("changing the image in the podTemplate itself")
		createAndCheck("configs/test-006-ch-upgrade-3.yaml", check.Spec{
			PodCount: ptr.To(2),
			PodImage: oldImage,
		})
	})

	It("test_007. template with custom clickhouse ports", func() {
		createAndCheck("configs/test-007-custom-ports.yaml", check.Spec{
			PodCount: ptr.To(1),
			PodPorts: []int32{8124, 9001, 9010},
		})
	})

	It("test_011. user security and network isolation", func() {
		secured := "test-011-secured-cluster"
		insecured := "test-011-insecured-cluster"
		securedHost := chiv1.HostName(secured, "default", 1, 0)
		DeferCleanup(func() {
			deleteCHI(secured)
			deleteCHI(insecured)
		})

		createAndCheck("configs/test-011-secured-cluster.yaml", check.Spec{
			PodCount: ptr.To(2),
			Service:  &check.ServiceRef{Name: securedHost, Type: "ClusterIP"},
			ApplyTemplates: []string{
				h.Config.ClickHouse.Template,
				"templates/tpl-log-volume.yaml",
			},
			ConfigMapKeys: map[string][]string{
				chiv1.UsersConfigMapName(secured): {chiv1.GeneratedConfigFile(chiv1.SectionUsers)},
			},
			DoNotDelete: true,
		})
		createAndCheck("configs/test-011-insecured-cluster.yaml", check.Spec{
			PodCount:    ptr.To(1),
			DoNotDelete: true,
		})

		query := func(chi string, opts clickhouse.QueryOptions) func() (string, error) {
			return func() (string, error) {
				return h.QueryWithError(ctx, chi, "select 'OK'", opts)
			}
		}

		By("connecting to localhost with the default user")
		Eventually(query(secured, clickhouse.QueryOptions{})).
			WithTimeout(2 * time.Minute).WithPolling(5 * time.Second).
			Should(Equal("OK"))

		By("connecting from secured to secured host")
		Eventually(query(secured, clickhouse.QueryOptions{Host: securedHost})).
			WithTimeout(time.Minute).WithPolling(5 * time.Second).
			Should(Equal("OK"))

		By("connecting from insecured to secured host as default")
		Expect(query(insecured, clickhouse.QueryOptions{Host: securedHost})()).NotTo(Equal("OK"))

		By("connecting from insecured to secured host as a user without password")
		Expect(query(insecured, clickhouse.QueryOptions{Host: securedHost, User: "user1"})()).
			To(Or(ContainSubstring("Password"), ContainSubstring("password")))

		By("connecting from insecured to secured host as a user with password")
		Expect(query(insecured, clickhouse.QueryOptions{Host: securedHost, User: "user1", Password: "topsecret"})()).
			To(Equal("OK"))

		By("checking passwords are stored hashed")
		users, err := h.Driver.Reader().Get(ctx, "configmap", chiv1.UsersConfigMapName(secured), h.Config.Namespace)
		Expect(err).NotTo(HaveOccurred())
		data, _, _ := unstructured.NestedString(users.Object, "data", chiv1.GeneratedConfigFile(chiv1.SectionUsers))
		Expect(data).NotTo(ContainSubstring("<password>"))
		Expect(data).To(ContainSubstring("<password_sha256_hex>"))

		By("connecting as a user without password who gets the default one")
		Expect(query(secured, clickhouse.QueryOptions{User: "user2", Password: "default"})()).To(Equal("OK"))

		By("connecting as a user with both plain and sha256 passwords")
		Expect(query(secured, clickhouse.QueryOptions{User: "user3", Password: "clickhouse_operator_password"})()).To(Equal("OK"))

		By("applying row level security")
		Expect(h.QueryWithError(ctx, secured, "select * from system.numbers limit 1", clickhouse.QueryOptions{User: "restricted", Password: "secret"})).
			To(Equal("1000"))
	})

	It("test_012. service templates", func() {
		chi := "test-012"
		DeferCleanup(deleteCHI, chi)

		createAndCheck("configs/test-012-service-template.yaml", check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 2,
				"pod":         2,
				"service":     4,
			},
			DoNotDelete: true,
		})
		for _, service := range []check.ServiceRef{
			{Name: "service-test-012", Type: "LoadBalancer"},
			{Name: "service-test-012-0-0", Type: "ClusterIP"},
			{Name: "service-test-012-1-0", Type: "ClusterIP"},
			{Name: "service-default", Type: "ClusterIP"},
		} {
			By("checking service " + service.Name)
			report, err := h.Driver.Evaluate(ctx, chi, check.Spec{Service: &service})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Passed()).To(BeTrue(), report.Render())
		}

		nodePort, err := h.Driver.Reader().GetField(ctx, "service", "service-test-012", h.Config.Namespace, ".spec.ports[0].nodePort")
		Expect(err).NotTo(HaveOccurred())

		By("removing a shard")
		createAndCheck("configs/test-012-service-template-2.yaml", check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 1,
				"pod":         1,
				"service":     3,
			},
			DoNotDelete: true,
		})
		Expect(h.Driver.Reader().GetField(ctx, "service", "service-test-012", h.Config.Namespace, ".spec.ports[0].nodePort")).
			To(Equal(nodePort), "LoadBalancer nodePort changed")
	})

	It("test_013. adding shards creates local and distributed tables", func() {
		config := "configs/test-013-add-shards-1.yaml"
		chi := chiName(config)
		cluster := "default"
		DeferCleanup(deleteCHI, chi)

		createAndCheck(config, check.Spec{
			ApplyTemplates: []string{h.Config.ClickHouse.Template},
			ObjectCounts: map[string]int{
				"statefulset": 1,
				"pod":         1,
				"service":     2,
			},
			DoNotDelete: true,
		})
		firstPod := chiv1.PodName(chi, cluster, 0, 0)
		startTime := podStartTime(firstPod)

		By("creating local and distributed tables")
		for _, sql := range []string{
			"CREATE TABLE test_local Engine = Log as SELECT * FROM system.one",
			"CREATE TABLE test_distr as test_local Engine = Distributed('default', default, test_local)",
			`CREATE DATABASE "test-db"`,
			`CREATE TABLE "test-db"."events-distr" as system.events ENGINE = Distributed('all-sharded', system, events)`,
		} {
			_, err := h.Query(ctx, chi, sql, clickhouse.QueryOptions{})
			Expect(err).NotTo(HaveOccurred())
		}

		By("adding shards")
		createAndCheck("configs/test-013-add-shards-2.yaml", check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 3,
				"pod":         3,
				"service":     4,
			},
			DoNotDelete: true,
		})
		Expect(podStartTime(firstPod)).To(Equal(startTime), "unaffected pod was restarted")

		By("migrating schema objects to the new shards")
		for _, table := range []string{"test_local", "test_distr", "events-distr"} {
			for _, shard := range []int{1, 2} {
				host := chiv1.HostName(chi, cluster, shard, 0)
				Eventually(func() (string, error) {
					return h.Query(ctx, chi, "SELECT count() FROM system.tables WHERE name = '"+table+"'", clickhouse.QueryOptions{Host: host})
				}).WithTimeout(time.Minute).WithPolling(5*time.Second).Should(Equal("1"), "table %s on %s", table, host)
			}
		}

		By("removing shards")
		createAndCheck(config, check.Spec{
			ObjectCounts: map[string]int{
				"statefulset": 1,
				"pod":         1,
				"service":     2,
			},
			DoNotDelete: true,
		})
		Expect(podStartTime(firstPod)).To(Equal(startTime), "unaffected pod was restarted")
	})

	It("test_019. volume is retained and re-attached", func() {
		config := "configs/test-019-retain-volume.yaml"
		chi := chiName(config)
		DeferCleanup(deleteCHI, chi)

		createAndCheck(config, check.Spec{PodCount: ptr.To(1), DoNotDelete: true})
		_, err := h.Query(ctx, chi, "create table t1 Engine = Log as select 1 as a", clickhouse.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())

		By("deleting the installation with retained volumes")
		pvcs, pvs, err := h.Driver.Lifecycle().VolumeCounts(ctx, h.Config.Namespace)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Driver.Delete(ctx, chi, true)).To(Succeed())

		retainedPVCs, retainedPVs, err := h.Driver.Lifecycle().VolumeCounts(ctx, h.Config.Namespace)
		Expect(err).NotTo(HaveOccurred())
		Expect(retainedPVCs).To(Equal(pvcs))
		Expect(retainedPVs).To(Equal(pvs))

		By("re-creating the installation")
		createAndCheck(config, check.Spec{PodCount: ptr.To(1), DoNotDelete: true})
		Expect(h.Query(ctx, chi, "select a from t1", clickhouse.QueryOptions{})).To(Equal("1"))
	})

	It("test_020. multi-volume configuration", func() {
		config := "configs/test-020-multi-volume.yaml"
		chi := chiName(config)
		DeferCleanup(deleteCHI, chi)

		createAndCheck(config, check.Spec{
			PodCount:    ptr.To(1),
			PodVolumes:  []string{"/var/lib/clickhouse", "/var/lib/clickhouse2"},
			DoNotDelete: true,
		})

		By("inserting a row")
		for _, sql := range []string{
			"create table test_disks(a Int8) Engine = MergeTree() order by a",
			"insert into test_disks values (1)",
		} {
			_, err := h.Query(ctx, chi, sql, clickhouse.QueryOptions{})
			Expect(err).NotTo(HaveOccurred())
		}
		diskOf := "select disk_name from system.parts where table='test_disks'"
		Expect(h.Query(ctx, chi, diskOf, clickhouse.QueryOptions{})).To(Equal("default"))

		By("moving the partition to disk2")
		_, err := h.Query(ctx, chi, "alter table test_disks move partition tuple() to disk 'disk2'", clickhouse.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Query(ctx, chi, diskOf, clickhouse.QueryOptions{})).To(Equal("disk2"))
	})

	It("test_022. broken image", func() {
		config := "configs/test-022-broken-image.yaml"
		chi := chiName(config)
		DeferCleanup(deleteCHI, chi)

		createAndCheck(config, check.Spec{
			PodCount:    ptr.To(1),
			CHIStatus:   chiv1.StatusInProgress,
			DoNotDelete: true,
		})

		By("waiting for the image pull to fail")
		Expect(h.Driver.WaitField(ctx, "pod", chiv1.PodName(chi, "default", 0, 0),
			".status.containerStatuses[0].state.waiting.reason", "ErrImagePull", 0)).To(Succeed())
	})
})
