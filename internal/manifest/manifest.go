// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads the YAML fixtures scenarios apply.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// Manifest is a fixture file decoded into objects.
type Manifest struct {
	Path    string
	Objects []*unstructured.Unstructured
}

// Installation returns the ClickHouseInstallation of the manifest.
func (m *Manifest) Installation() (*unstructured.Unstructured, error) {
	for _, obj := range m.Objects {
		if obj.GroupVersionKind() == chiv1.ClickHouseInstallationGVK {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%s: no %s found", m.Path, chiv1.ClickHouseInstallationGVK.Kind)
}

// Name returns the name of the installation of the manifest.
func (m *Manifest) Name() (string, error) {
	chi, err := m.Installation()
	if err != nil {
		return "", err
	}
	return chi.GetName(), nil
}

// Decode splits a multi-document YAML or JSON stream into objects. Empty documents are skipped.
func Decode(data []byte) ([]*unstructured.Unstructured, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	var objs []*unstructured.Unstructured
	for i := 0; ; i++ {
		doc := map[string]interface{}{}
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(doc) == 0 {
			continue
		}
		obj := &unstructured.Unstructured{Object: doc}
		if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
			return nil, fmt.Errorf("document %d: apiVersion and kind are required", i)
		}
		if obj.GetName() == "" {
			return nil, fmt.Errorf("document %d: %s without metadata.name", i, obj.GetKind())
		}
		objs = append(objs, obj)
	}
	if len(objs) == 0 {
		return nil, errors.New("no objects found")
	}
	return objs, nil
}

// Resolver maps fixture paths relative to a root directory to files.
type Resolver struct {
	Root string
}

// Path returns the file a fixture path refers to. Absolute paths are kept.
func (r Resolver) Path(path string) string {
	if filepath.IsAbs(path) || r.Root == "" {
		return path
	}
	return filepath.Join(r.Root, path)
}

// Exists reports whether path refers to an existing file.
func (r Resolver) Exists(path string) bool {
	info, err := os.Stat(r.Path(path))
	return err == nil && !info.IsDir()
}

// Load reads and decodes the fixture at path.
func (r Resolver) Load(path string) (*Manifest, error) {
	file := r.Path(path)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	objs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", file, err)
	}
	return &Manifest{Path: file, Objects: objs}, nil
}

// TemplateName returns the name of the template defined by the fixture id. An id that is not
// a file is taken as the template name itself.
func (r Resolver) TemplateName(id string) (string, error) {
	if !r.Exists(id) {
		return id, nil
	}
	m, err := r.Load(id)
	if err != nil {
		return "", err
	}
	for _, obj := range m.Objects {
		if obj.GroupVersionKind() == chiv1.ClickHouseInstallationTemplateGVK {
			return obj.GetName(), nil
		}
	}
	return m.Objects[0].GetName(), nil
}
