// SPDX-License-Identifier: AGPL-3.0-only
package common

// LoadExclusionMap turns an account's excluded post ids into a lookup set.
func LoadExclusionMap(ids []string) map[string]bool {
	exclusionMap := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		exclusionMap[id] = true
	}

	return exclusionMap
}
