// Package contacts persists the mapping from sender address to display
// name and destination folder as a YAML file.
package contacts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry describes one known sender. The on-disk keys match the
// historical format, including the spaced "Last used".
type Entry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	LastUsed string `yaml:"Last used"`
}

// Book is the in-memory contact directory.
type Book struct {
	entries map[string]Entry
}

// NewBook returns an empty contact directory.
func NewBook() *Book {
	return &Book{entries: make(map[string]Entry)}
}

// Load reads the contact directory from path. A missing file yields an
// empty book. Duplicate address keys collapse last-one-wins; this is
// the documented merge policy of the persisted format, not an error.
func Load(path string) (*Book, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewBook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contact directory: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse contact directory: %w", err)
	}

	book := NewBook()
	if root.Kind == 0 || len(root.Content) == 0 {
		return book, nil
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("contact directory: expected a mapping at the top level, got %s", nodeKind(mapping))
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]

		var entry Entry
		if err := valueNode.Decode(&entry); err != nil {
			return nil, fmt.Errorf("contact %q: %w", keyNode.Value, err)
		}
		// Later duplicates overwrite earlier ones.
		book.entries[keyNode.Value] = entry
	}

	if err := book.validate(); err != nil {
		return nil, err
	}
	return book, nil
}

// Save writes the book to path with addresses sorted case-insensitively.
func (b *Book) Save(path string) error {
	addresses := b.Addresses()

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, address := range addresses {
		var key, value yaml.Node
		key.SetString(address)
		if err := value.Encode(b.entries[address]); err != nil {
			return fmt.Errorf("encode contact %q: %w", address, err)
		}
		root.Content = append(root.Content, &key, &value)
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode contact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write contact directory: %w", err)
	}
	return nil
}

// Resolve looks up the entry for a normalized sender address.
func (b *Book) Resolve(address string) (Entry, bool) {
	entry, ok := b.entries[address]
	return entry, ok
}

// Register adds or replaces the entry for a sender address.
func (b *Book) Register(address string, entry Entry) {
	b.entries[address] = entry
}

// Len reports the number of known senders.
func (b *Book) Len() int {
	return len(b.entries)
}

// Addresses returns all known addresses, sorted case-insensitively.
func (b *Book) Addresses() []string {
	addresses := make([]string, 0, len(b.entries))
	for address := range b.entries {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return strings.ToLower(addresses[i]) < strings.ToLower(addresses[j])
	})
	return addresses
}

func (b *Book) validate() error {
	var problems []string
	for _, address := range b.Addresses() {
		entry := b.entries[address]
		if entry.Name == "" {
			problems = append(problems, fmt.Sprintf("%q: missing name", address))
		}
		if entry.Path == "" {
			problems = append(problems, fmt.Sprintf("%q: path is empty", address))
		} else if strings.ContainsRune(entry.Path, 0) {
			problems = append(problems, fmt.Sprintf("%q: path contains null character", address))
		}
		if entry.LastUsed == "" {
			problems = append(problems, fmt.Sprintf("%q: missing last-used date", address))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("contact directory validation errors:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
