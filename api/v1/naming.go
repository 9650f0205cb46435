// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package v1

import "fmt"

const (
	// LabelCHI is set by the operator on every object it creates for an installation.
	LabelCHI     = "clickhouse.altinity.com/chi"
	LabelCluster = "clickhouse.altinity.com/cluster"
	LabelShard   = "clickhouse.altinity.com/shard"
	LabelReplica = "clickhouse.altinity.com/replica"
)

// Generated configuration sections.
const (
	SectionRemoteServers = "remote_servers"
	SectionSettings      = "settings"
	SectionFiles         = "files"
	SectionUsers         = "users"
	SectionQuotas        = "quotas"
	SectionProfiles      = "profiles"
	SectionMacros        = "macros"
	SectionZookeeper     = "zookeeper"
	SectionPorts         = "ports"
)

// Selector returns the label selector matching every object of installation chi.
func Selector(chi string) string {
	return LabelCHI + "=" + chi
}

// HostName is the name of the statefulset and service of one host.
func HostName(chi, cluster string, shard, replica int) string {
	return fmt.Sprintf("chi-%s-%s-%d-%d", chi, cluster, shard, replica)
}

// PodName is the name of the single pod of one host.
func PodName(chi, cluster string, shard, replica int) string {
	return HostName(chi, cluster, shard, replica) + "-0"
}

// InstallationServiceName is the name of the load balancer service of installation chi.
func InstallationServiceName(chi string) string {
	return "clickhouse-" + chi
}

func CommonConfigMapName(chi string) string {
	return "chi-" + chi + "-common-configd"
}

func UsersConfigMapName(chi string) string {
	return "chi-" + chi + "-common-usersd"
}

// GeneratedConfigFile is the file a generated section is written to.
func GeneratedConfigFile(section string) string {
	return "chop-generated-" + section + ".xml"
}
