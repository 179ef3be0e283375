package memory

import (
	"strings"
	"time"
)

// MemorySection is a titled content block within a category's memory.
type MemorySection struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Keywords  []string  `json:"keywords,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// ConsolidatedMemory is the versioned knowledge document for one
// (project, category) pair. Sections keep insertion order; section keys
// are unique within a memory. Created lazily on the first insight for a
// category; categories are append-only and never deleted.
type ConsolidatedMemory struct {
	ProjectID string           `json:"project_id"`
	Category  string           `json:"category"`
	Sections  []*MemorySection `json:"sections"`
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewConsolidatedMemory creates an empty memory for (projectID, category).
func NewConsolidatedMemory(projectID, category string) *ConsolidatedMemory {
	return &ConsolidatedMemory{
		ProjectID: projectID,
		Category:  category,
		CreatedAt: time.Now(),
	}
}

// Section returns the section with the given key.
func (m *ConsolidatedMemory) Section(key string) (*MemorySection, bool) {
	for _, s := range m.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}

// UpsertSection merges title/content/keywords into the section with the
// given key, or appends a new section when the key is unknown or empty
// (a new key is derived from the title). Every mutation increments the
// section's local version and the memory's overall version.
//
// The content handed in must already be additive: conflict resolution
// happens upstream in the merge resolver, never by dropping text here.
func (m *ConsolidatedMemory) UpsertSection(key, title, content string, keywords []string) *MemorySection {
	if key == "" {
		key = SectionKey(title)
	}

	now := time.Now()
	m.Version++

	if existing, ok := m.Section(key); ok {
		existing.Title = title
		existing.Content = content
		existing.Keywords = mergeKeywords(existing.Keywords, keywords)
		existing.UpdatedAt = now
		existing.Version++
		return existing
	}

	section := &MemorySection{
		Key:       key,
		Title:     title,
		Content:   content,
		Keywords:  mergeKeywords(nil, keywords),
		UpdatedAt: now,
		Version:   1,
	}
	m.Sections = append(m.Sections, section)
	return section
}

// Clone returns a deep copy detached from the original: mutating the
// clone's sections or keywords never touches the source document.
func (m *ConsolidatedMemory) Clone() *ConsolidatedMemory {
	clone := &ConsolidatedMemory{
		ProjectID: m.ProjectID,
		Category:  m.Category,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
	}
	if m.Sections != nil {
		clone.Sections = make([]*MemorySection, len(m.Sections))
		for i, s := range m.Sections {
			sc := *s
			sc.Keywords = append([]string(nil), s.Keywords...)
			clone.Sections[i] = &sc
		}
	}
	return clone
}

// FullContent renders every section in insertion order under a category
// heading. Deterministic for a given memory state; used for display and
// as merge-decision input.
func (m *ConsolidatedMemory) FullContent() string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(m.Category)
	sb.WriteString("\n")

	for _, s := range m.Sections {
		sb.WriteString("\n## ")
		sb.WriteString(s.Title)
		sb.WriteString("\n")
		sb.WriteString(s.Content)
		sb.WriteString("\n")
		if len(s.Keywords) > 0 {
			sb.WriteString("Keywords: ")
			sb.WriteString(strings.Join(s.Keywords, ", "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// SectionKey derives a stable key from a section title.
func SectionKey(title string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		default:
			return -1
		}
	}, key)
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	key = strings.Trim(key, "_")
	if key == "" {
		key = "section"
	}
	return key
}

// mergeKeywords unions keywords preserving first-seen order.
func mergeKeywords(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, k := range existing {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		merged = append(merged, k)
	}
	for _, k := range incoming {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		merged = append(merged, k)
	}
	return merged
}
