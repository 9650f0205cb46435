// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsedTemplateNames(t *testing.T) {
	tests := map[string]struct {
		status   ClickHouseInstallationStatus
		expected []string
	}{
		"empty status": {
			status:   ClickHouseInstallationStatus{},
			expected: []string{},
		},
		"used templates only": {
			status: ClickHouseInstallationStatus{
				UsedTemplates: []TemplateRef{{Name: "clickhouse-stable"}, {Name: "persistent-volume"}},
			},
			expected: []string{"clickhouse-stable", "persistent-volume"},
		},
		"normalized only": {
			status: ClickHouseInstallationStatus{
				Normalized: &ClickHouseInstallationSpec{UseTemplates: []TemplateRef{{Name: "clickhouse-stable"}}},
			},
			expected: []string{"clickhouse-stable"},
		},
		"both places are merged without duplicates": {
			status: ClickHouseInstallationStatus{
				UsedTemplates: []TemplateRef{{Name: "clickhouse-stable"}},
				Normalized:    &ClickHouseInstallationSpec{UseTemplates: []TemplateRef{{Name: "clickhouse-stable"}, {Name: "log-volume"}}},
			},
			expected: []string{"clickhouse-stable", "log-volume"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.UsedTemplateNames())
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusAborted))
	assert.True(t, IsTerminalStatus(StatusFailed))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusInProgress))
	assert.False(t, IsTerminalStatus(""))
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "chi-test-002-tpl-default-0-0", HostName("test-002-tpl", "default", 0, 0))
	assert.Equal(t, "chi-test-002-tpl-default-0-0-0", PodName("test-002-tpl", "default", 0, 0))
	assert.Equal(t, "clickhouse.altinity.com/chi=simple-01", Selector("simple-01"))
	assert.Equal(t, "chop-generated-users.xml", GeneratedConfigFile(SectionUsers))
	assert.Equal(t, "chi-simple-01-common-usersd", UsersConfigMapName("simple-01"))
}
