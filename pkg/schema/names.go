package schema

// AgentNameMap maps raw agent names from the runtime to display names.
type AgentNameMap map[string]string

// Display returns the display name for a raw agent name, falling back to
// the raw name when no mapping exists.
func (m AgentNameMap) Display(raw string) string {
	if m == nil {
		return raw
	}
	if name, ok := m[raw]; ok && name != "" {
		return name
	}
	return raw
}
