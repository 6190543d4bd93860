package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"decobot/internal/chat"
	"decobot/internal/domain"
)

// LoadReferenceData reads recipients, customers, the catalog and bank details from a YAML
// file. An empty path yields the built-in recipients only.
func LoadReferenceData(path string) (*domain.ReferenceData, error) {
	ref := &domain.ReferenceData{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading reference data file: %w", err)
		}

		if err := yaml.Unmarshal(data, ref); err != nil {
			return nil, fmt.Errorf("parsing reference data file: %w", err)
		}
	}

	if len(ref.Recipients) == 0 {
		ref.Recipients = domain.DefaultRecipients()
	}

	// Recipient keys ride in assign_recipient buttons next to the order id.
	maxKey := chat.MaxArgLen(string(domain.EventAssignRecipient))
	seen := make(map[string]struct{}, len(ref.Recipients))
	for _, r := range ref.Recipients {
		if r.Key == "" || r.Name == "" {
			return nil, fmt.Errorf("recipient entries need key and name")
		}
		if len(r.Key) > maxKey {
			return nil, fmt.Errorf("recipient key %q is longer than %d bytes", r.Key, maxKey)
		}
		if _, dup := seen[r.Key]; dup {
			return nil, fmt.Errorf("duplicate recipient key %q", r.Key)
		}
		seen[r.Key] = struct{}{}
	}

	products := make(map[string]struct{}, len(ref.Catalog))
	for _, p := range ref.Catalog {
		if p.ID == "" || p.Price <= 0 {
			return nil, fmt.Errorf("catalog entries need id and a positive price")
		}
		if _, dup := products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product %q", p.ID)
		}
		products[p.ID] = struct{}{}
	}

	return ref, nil
}
