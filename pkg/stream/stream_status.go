// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"strings"
)

type Status struct {
	Config *ConfigStatus
	Source *SourceStatus
}

type ConfigStatus struct {
	Valid  bool
	Errors []string
}

type SourceStatus struct {
	Reachable  bool
	Topic      string
	Partitions []string
	Errors     []string
}

type StatusErrors map[string][]string

func (se StatusErrors) Keys() []string {
	keys := make([]string, 0, len(se))
	for k := range se {
		keys = append(keys, k)
	}
	return keys
}

func (s *Status) GetErrors() StatusErrors {
	if s == nil {
		return nil
	}

	errors := map[string][]string{}
	if s.Source != nil && len(s.Source.Errors) > 0 {
		errors["source"] = s.Source.Errors
	}

	if s.Config != nil && len(s.Config.Errors) > 0 {
		errors["config"] = s.Config.Errors
	}

	return errors
}

func (s *Status) PrettyPrint() string {
	if s == nil {
		return ""
	}

	var prettyPrint strings.Builder
	prettyPrint.WriteString(s.Config.PrettyPrint())
	prettyPrint.WriteByte('\n')
	prettyPrint.WriteString(s.Source.PrettyPrint())

	return prettyPrint.String()
}

func (ss *SourceStatus) PrettyPrint() string {
	if ss == nil {
		return ""
	}

	var prettyPrint strings.Builder
	prettyPrint.WriteString("Source status:\n")
	prettyPrint.WriteString(fmt.Sprintf(" - Reachable: %t\n", ss.Reachable))
	if ss.Topic != "" {
		prettyPrint.WriteString(fmt.Sprintf(" - Topic: %s\n", ss.Topic))
	}
	if len(ss.Partitions) > 0 {
		prettyPrint.WriteString(fmt.Sprintf(" - Partitions: %s\n", ss.Partitions))
	}
	if len(ss.Errors) > 0 {
		prettyPrint.WriteString(fmt.Sprintf(" - Errors: %s\n", ss.Errors))
	}

	// trim the last newline character
	return prettyPrint.String()[:len(prettyPrint.String())-1]
}

func (cs *ConfigStatus) PrettyPrint() string {
	if cs == nil {
		return ""
	}

	var prettyPrint strings.Builder
	prettyPrint.WriteString("Config status:\n")
	prettyPrint.WriteString(fmt.Sprintf(" - Valid: %t\n", cs.Valid))
	if len(cs.Errors) > 0 {
		prettyPrint.WriteString(fmt.Sprintf(" - Errors: %s\n", cs.Errors))
	}

	// trim the last newline character
	return prettyPrint.String()[:len(prettyPrint.String())-1]
}
