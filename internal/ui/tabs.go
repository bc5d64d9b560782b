// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import "fmt"

// Tab names one of the result-area tabs.
type Tab string

const (
	TabSynthesis Tab = "synthesis"
	TabEvidence  Tab = "evidence"
	TabProtocol  Tab = "protocol"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabSynthesis, TabEvidence, TabProtocol}

// ParseTab validates a tab name.
func ParseTab(name string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q: use synthesis, evidence or protocol", name)
}

// TabSet tracks the single active tab. The zero value has synthesis active.
type TabSet struct {
	active Tab
}

// Switch activates tab and deactivates the others. Unknown tabs are
// rejected and leave the active tab unchanged.
func (s *TabSet) Switch(tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	s.active = tab
	return nil
}

// Active returns the active tab.
func (s TabSet) Active() Tab {
	if s.active == "" {
		return TabSynthesis
	}
	return s.active
}

// IsActive reports whether tab is the active one.
func (s TabSet) IsActive(tab Tab) bool {
	return s.Active() == tab
}
