// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
)

// Pending: the installation has been accepted but the operator has not started reconciling it.
//
// InProgress: the operator is creating or updating the child objects of the installation.
//
// Completed: every host has been reconciled and the generated configuration applied.
//
// Aborted: the reconcile was interrupted, usually by a newer generation of the same installation.
//
// Failed: the operator gave up reconciling the installation.
const (
	StatusPending    = "Pending"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusAborted    = "Aborted"
	StatusFailed     = "Failed"
)

// IsTerminalStatus reports whether the operator will not move the installation out of status without a new change.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusAborted, StatusFailed:
		return true
	}
	return false
}

// +kubebuilder:object:root=true
// ClickHouseInstallationList contains a list of ClickHouseInstallation
type ClickHouseInstallationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ClickHouseInstallation `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=chi
// +kubebuilder:printcolumn:name="Status",type="string",priority=0,JSONPath=".status.status",description="The installation status"
// +kubebuilder:printcolumn:name="Hosts",type="integer",priority=0,JSONPath=".status.hosts",description="Hosts count"
// ClickHouseInstallation is the Schema for the clickhouseinstallations API
type ClickHouseInstallation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              ClickHouseInstallationSpec   `json:"spec,omitempty"`
	Status            ClickHouseInstallationStatus `json:"status,omitempty"`
}

// NamespacedName returns the NamespacedName of the ClickHouseInstallation.
func (chi ClickHouseInstallation) NamespacedName() types.NamespacedName {
	return types.NamespacedName{
		Namespace: chi.GetNamespace(),
		Name:      chi.GetName(),
	}
}

// ClickHouseInstallationSpec defines the desired state of ClickHouseInstallation.
// Only the fields the operator acts on as a whole are typed; configuration, templates and
// defaults are carried through untouched.
type ClickHouseInstallationSpec struct {
	// +kubebuilder:validation:Optional
	TaskID string `json:"taskID,omitempty"`

	// +kubebuilder:validation:Optional
	// Stop set to "yes" scales every host down to zero pods.
	Stop string `json:"stop,omitempty"`

	// +kubebuilder:validation:Optional
	Restart string `json:"restart,omitempty"`

	// +kubebuilder:validation:Optional
	Troubleshoot string `json:"troubleshoot,omitempty"`

	// +kubebuilder:validation:Optional
	// UseTemplates lists ClickHouseInstallationTemplates merged into this installation.
	UseTemplates []TemplateRef `json:"useTemplates,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:pruning:PreserveUnknownFields
	Defaults *runtime.RawExtension `json:"defaults,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:pruning:PreserveUnknownFields
	Configuration *runtime.RawExtension `json:"configuration,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:pruning:PreserveUnknownFields
	Templates *runtime.RawExtension `json:"templates,omitempty"`
}

// TemplateRef points at a ClickHouseInstallationTemplate.
type TemplateRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	UseType   string `json:"useType,omitempty"`
}

// ClickHouseInstallationStatus defines the observed state of ClickHouseInstallation
type ClickHouseInstallationStatus struct {
	Status         string   `json:"status,omitempty"`
	TaskID         string   `json:"taskID,omitempty"`
	Action         string   `json:"action,omitempty"`
	Error          string   `json:"error,omitempty"`
	Clusters       int      `json:"clusters,omitempty"`
	Shards         int      `json:"shards,omitempty"`
	Replicas       int      `json:"replicas,omitempty"`
	Hosts          int      `json:"hosts,omitempty"`
	HostsCompleted int      `json:"hostsCompleted,omitempty"`
	Endpoint       string   `json:"endpoint,omitempty"`
	Pods           []string `json:"pods,omitempty"`
	FQDNs          []string `json:"fqdns,omitempty"`

	// UsedTemplates is the audit trail of the templates merged into the last reconciled generation.
	UsedTemplates []TemplateRef `json:"usedTemplates,omitempty"`

	// Normalized is the spec after templates and defaults were merged in.
	// +kubebuilder:pruning:PreserveUnknownFields
	Normalized *ClickHouseInstallationSpec `json:"normalized,omitempty"`
}

// UsedTemplateNames returns the names of the templates recorded in status. Older operators only
// record them inside the normalized spec, so both places are read.
func (status ClickHouseInstallationStatus) UsedTemplateNames() []string {
	seen := map[string]bool{}
	names := []string{}
	add := func(refs []TemplateRef) {
		for _, ref := range refs {
			if ref.Name == "" || seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
	}
	add(status.UsedTemplates)
	if status.Normalized != nil {
		add(status.Normalized.UseTemplates)
	}
	return names
}

// +kubebuilder:object:root=true
// ClickHouseInstallationTemplateList contains a list of ClickHouseInstallationTemplate
type ClickHouseInstallationTemplateList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ClickHouseInstallationTemplate `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:shortName=chit
// ClickHouseInstallationTemplate is merged into installations that reference it.
type ClickHouseInstallationTemplate struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              ClickHouseInstallationSpec `json:"spec,omitempty"`
}

func init() {
	SchemeBuilder.Register(&ClickHouseInstallation{}, &ClickHouseInstallationList{})
	SchemeBuilder.Register(&ClickHouseInstallationTemplate{}, &ClickHouseInstallationTemplateList{})
}
