package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/nerrad567/geogate/internal/infrastructure/logging"
)

// SeedUsersFromFile imports a legacy users.json ({"alice": "pw1", ...}) on
// first boot. Nothing happens if any user already exists. Passwords are
// stored through scheme. Returns the number of users created.
func SeedUsersFromFile(ctx context.Context, repo UserRepository, scheme SecretScheme, path string, logger *logging.Logger) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping user seed", "count", count)
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading users seed %s: %w", path, err)
	}

	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return 0, fmt.Errorf("parsing users seed %s: %w", path, err)
	}

	names := make([]string, 0, len(legacy))
	for name := range legacy {
		names = append(names, name)
	}
	sort.Strings(names)

	// Reject the whole file up front so a bad entry never leaves a partial
	// import behind.
	for _, name := range names {
		if !IsValidUsername(name) {
			return 0, fmt.Errorf("users seed %s: %w: %q", path, ErrInvalidUsername, name)
		}
	}

	created := 0
	for _, name := range names {
		secret, err := scheme.Hash(legacy[name])
		if err != nil {
			return created, fmt.Errorf("hashing password for %q: %w", name, err)
		}

		if err := repo.Create(ctx, &User{Username: name, PasswordHash: secret}); err != nil {
			return created, fmt.Errorf("creating seed user %q: %w", name, err)
		}
		created++
	}

	logger.Info("seeded users from legacy store", "path", path, "count", created)
	return created, nil
}
