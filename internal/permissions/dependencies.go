package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPermission indicates a permission lookup failed because it has not been registered.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularDependency signals that a dependency graph contains a cycle.
	ErrCircularDependency = errors.New("permission: circular dependency detected")
)

// ResolveDependencies returns the full dependency chain for the specified
// permission, deepest first.
func ResolveDependencies(permissionID string) ([]string, error) {
	perms := GetAll()

	root, ok := perms[permissionID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	visited := make(map[string]bool, len(perms))
	onPath := map[string]bool{permissionID: true}
	var resolved []string

	var walk func(string) error
	walk = func(current string) error {
		perm, ok := perms[current]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, current)
		}
		if onPath[current] {
			return fmt.Errorf("%w at %s", ErrCircularDependency, current)
		}
		if visited[current] {
			return nil
		}

		onPath[current] = true
		for _, dep := range perm.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		onPath[current] = false
		visited[current] = true
		resolved = append(resolved, current)
		return nil
	}

	for _, dep := range root.DependsOn {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}
