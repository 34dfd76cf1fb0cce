package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// GroupVisibilityOptionKey is the options-table key for the group map.
const GroupVisibilityOptionKey = "GroupVisibilityMap"

// GroupVisibilityMap maps a user group to the groups its members may select.
// Stored as validated JSON in the options table; keys and members must be
// declared group identifiers, never free-form text.
type GroupVisibilityMap map[string][]string

// Validate checks every key and member against the known group set.
func (m GroupVisibilityMap) Validate(knownGroups []string) error {
	known := make(map[string]bool, len(knownGroups))
	for _, g := range knownGroups {
		known[g] = true
	}
	for group, visible := range m {
		if !known[group] {
			return fmt.Errorf("unknown group %q in visibility map", group)
		}
		for _, v := range visible {
			if !known[v] {
				return fmt.Errorf("unknown group %q listed under %q", v, group)
			}
		}
	}
	return nil
}

// VisibleGroups returns the sorted groups a member of userGroup may select.
// Every group can at least see itself.
func (m GroupVisibilityMap) VisibleGroups(userGroup string) []string {
	seen := map[string]bool{userGroup: true}
	for _, v := range m[userGroup] {
		seen[v] = true
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// LoadGroupVisibilityMap reads the stored map; missing means empty.
func LoadGroupVisibilityMap(db *gorm.DB) (GroupVisibilityMap, error) {
	raw, err := GetOption(db, GroupVisibilityOptionKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return GroupVisibilityMap{}, nil
	}
	var m GroupVisibilityMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveGroupVisibilityMap validates against knownGroups and persists the map.
func SaveGroupVisibilityMap(db *gorm.DB, m GroupVisibilityMap, knownGroups []string) error {
	if err := m.Validate(knownGroups); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return SetOption(db, GroupVisibilityOptionKey, string(raw))
}

// KnownGroups lists the distinct groups present on users, always including
// the default group.
func KnownGroups(db *gorm.DB) ([]string, error) {
	var groups []string
	err := db.Model(&User{}).Distinct("`group`").Where("`group` != ''").Pluck("`group`", &groups).Error
	if err != nil {
		return nil, err
	}
	hasDefault := false
	for _, g := range groups {
		if g == "default" {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		groups = append(groups, "default")
	}
	sort.Strings(groups)
	return groups, nil
}
