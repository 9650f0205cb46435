// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/jsonpath"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Reader is the read-only view of the cluster used by waits and checks. It never mutates state.
type Reader struct {
	client client.Reader
}

func NewReader(c client.Reader) *Reader {
	return &Reader{client: c}
}

// Get returns the current document of the named resource.
func (r *Reader) Get(ctx context.Context, kind, name, namespace string) (*unstructured.Unstructured, error) {
	k, err := ResolveKind(kind)
	if err != nil {
		return nil, err
	}
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(k.GVK)
	key := types.NamespacedName{Name: name}
	if k.Namespaced {
		key.Namespace = namespace
	}
	if err := r.client.Get(ctx, key, obj); err != nil {
		return nil, Classify(fmt.Sprintf("get %s %s", k.Name, key), err)
	}
	return obj, nil
}

// GetField returns the value at path, a kubectl JSONPath expression such as
// ".status.containerStatuses[0].state.waiting.reason". A missing field is ErrNotFound.
func (r *Reader) GetField(ctx context.Context, kind, name, namespace, path string) (string, error) {
	obj, err := r.Get(ctx, kind, name, namespace)
	if err != nil {
		return "", err
	}
	value, err := Field(obj.Object, path)
	if err != nil {
		return "", fmt.Errorf("%s %s/%s: %w", kind, namespace, name, err)
	}
	return value, nil
}

// List returns the resources of kind in namespace matching the label selector. An empty selector matches all.
func (r *Reader) List(ctx context.Context, kind, namespace, selector string) ([]unstructured.Unstructured, error) {
	k, err := ResolveKind(kind)
	if err != nil {
		return nil, err
	}
	sel, err := labels.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("parse selector %q: %w", selector, err)
	}
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(k.ListGVK())
	opts := []client.ListOption{client.MatchingLabelsSelector{Selector: sel}}
	if k.Namespaced && namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if err := r.client.List(ctx, list, opts...); err != nil {
		return nil, Classify(fmt.Sprintf("list %s in %q with %q", k.Name, namespace, selector), err)
	}
	return list.Items, nil
}

// Count returns how many resources of kind in namespace match the label selector.
func (r *Reader) Count(ctx context.Context, kind, namespace, selector string) (int, error) {
	items, err := r.List(ctx, kind, namespace, selector)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Field evaluates a JSONPath expression against a decoded document. Scalars are rendered the way
// kubectl -o jsonpath renders them.
func Field(document map[string]interface{}, path string) (string, error) {
	expr := strings.TrimSpace(path)
	if !strings.HasPrefix(expr, "{") {
		if !strings.HasPrefix(expr, ".") {
			expr = "." + expr
		}
		expr = "{" + expr + "}"
	}
	jp := jsonpath.New("field")
	if err := jp.Parse(expr); err != nil {
		return "", fmt.Errorf("parse field path %q: %w", path, err)
	}
	results, err := jp.FindResults(document)
	if err != nil {
		if missing(err) {
			return "", fmt.Errorf("field %s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("evaluate field path %q: %w", path, err)
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return "", fmt.Errorf("field %s: %w", path, ErrNotFound)
	}
	buf := &bytes.Buffer{}
	if err := jp.PrintResults(buf, results[0]); err != nil {
		return "", fmt.Errorf("print field %q: %w", path, err)
	}
	return buf.String(), nil
}

func missing(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is not found") || strings.Contains(msg, "index out of bounds")
}
