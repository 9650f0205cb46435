// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"fmt"
	"strings"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
)

// Kind is a resource kind the harness knows how to read.
type Kind struct {
	Name       string
	GVK        schema.GroupVersionKind
	Namespaced bool
}

// ListGVK is the GroupVersionKind of the list type of the kind.
func (k Kind) ListGVK() schema.GroupVersionKind {
	return k.GVK.GroupVersion().WithKind(k.GVK.Kind + "List")
}

var (
	kindPod          = Kind{Name: "pod", GVK: schema.GroupVersionKind{Version: "v1", Kind: "Pod"}, Namespaced: true}
	kindService      = Kind{Name: "service", GVK: schema.GroupVersionKind{Version: "v1", Kind: "Service"}, Namespaced: true}
	kindConfigMap    = Kind{Name: "configmap", GVK: schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, Namespaced: true}
	kindPVC          = Kind{Name: "pvc", GVK: schema.GroupVersionKind{Version: "v1", Kind: "PersistentVolumeClaim"}, Namespaced: true}
	kindPV           = Kind{Name: "pv", GVK: schema.GroupVersionKind{Version: "v1", Kind: "PersistentVolume"}}
	kindStatefulSet  = Kind{Name: "statefulset", GVK: schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "StatefulSet"}, Namespaced: true}
	kindDeployment   = Kind{Name: "deployment", GVK: schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, Namespaced: true}
	kindStorageClass = Kind{Name: "storageclass", GVK: schema.GroupVersionKind{Group: "storage.k8s.io", Version: "v1", Kind: "StorageClass"}}
	kindCHI          = Kind{Name: "chi", GVK: chiv1.ClickHouseInstallationGVK, Namespaced: true}
	kindCHIT         = Kind{Name: "chit", GVK: chiv1.ClickHouseInstallationTemplateGVK, Namespaced: true}
)

// kubectl style names and short names.
var kindAliases = map[string]Kind{
	"pod": kindPod, "pods": kindPod, "po": kindPod,
	"service": kindService, "services": kindService, "svc": kindService,
	"configmap": kindConfigMap, "configmaps": kindConfigMap, "cm": kindConfigMap,
	"pvc": kindPVC, "persistentvolumeclaim": kindPVC, "persistentvolumeclaims": kindPVC,
	"pv": kindPV, "persistentvolume": kindPV, "persistentvolumes": kindPV,
	"statefulset": kindStatefulSet, "statefulsets": kindStatefulSet, "sts": kindStatefulSet,
	"deployment": kindDeployment, "deployments": kindDeployment, "deploy": kindDeployment,
	"storageclass": kindStorageClass, "storageclasses": kindStorageClass, "sc": kindStorageClass,
	"chi": kindCHI, "clickhouseinstallation": kindCHI, "clickhouseinstallations": kindCHI,
	"chit": kindCHIT, "clickhouseinstallationtemplate": kindCHIT, "clickhouseinstallationtemplates": kindCHIT,
}

// ResolveKind maps a kind name or short name to its Kind.
func ResolveKind(name string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(name)]
	if !ok {
		return Kind{}, fmt.Errorf("unknown resource kind %q", name)
	}
	return k, nil
}

// KindForGVK returns the Kind registered for gvk, or a namespaced Kind named after it when unknown.
func KindForGVK(gvk schema.GroupVersionKind) Kind {
	for _, k := range kindAliases {
		if k.GVK == gvk {
			return k
		}
	}
	return Kind{Name: strings.ToLower(gvk.Kind), GVK: gvk, Namespaced: true}
}

// NewScheme returns a scheme with the core Kubernetes types and the ClickHouse API registered.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(chiv1.AddToScheme(scheme))
	return scheme
}
