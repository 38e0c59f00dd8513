package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/nerrad567/geogate/internal/infrastructure/logging"
)

// legacyEntry is one element of a users' list in files.json.
type legacyEntry struct {
	Filename string `json:"filename"`
	ViewType string `json:"viewtype"`
}

// SeedFromFile imports a legacy files.json
// ({"alice": [{"filename": "a.txt", "viewtype": "onetime"}]}) when no
// entitlement exists yet. Entries with invalid filenames are skipped.
// Returns the number of entitlements created.
func SeedFromFile(ctx context.Context, store EntitlementStore, path string, logger *logging.Logger) (int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking entitlement count: %w", err)
	}
	if count > 0 {
		logger.Info("entitlements exist, skipping files seed", "count", count)
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading files seed %s: %w", path, err)
	}

	var legacy map[string][]legacyEntry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return 0, fmt.Errorf("parsing files seed %s: %w", path, err)
	}

	users := make([]string, 0, len(legacy))
	for u := range legacy {
		users = append(users, u)
	}
	sort.Strings(users)

	created := 0
	for _, u := range users {
		ents := make([]Entitlement, 0, len(legacy[u]))
		for _, e := range legacy[u] {
			if !ValidFilename(e.Filename) {
				logger.Warn("skipping seed entitlement with invalid filename", "username", u, "filename", e.Filename)
				continue
			}
			ents = append(ents, Entitlement{Filename: e.Filename, ViewType: ParseViewType(e.ViewType)})
		}
		if len(ents) == 0 {
			continue
		}
		if err := store.Grant(ctx, u, ents...); err != nil {
			return created, fmt.Errorf("seeding entitlements for %q: %w", u, err)
		}
		created += len(ents)
	}

	logger.Info("seeded entitlements from legacy store", "path", path, "count", created)
	return created, nil
}
