// Package selection moves node payloads between their home container and the
// edit container, and tracks which nodes are selected.
package selection

import (
	"errors"
	"fmt"

	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/shape"
)

// ErrDetached is returned for a node whose payload is in no container.
var ErrDetached = errors.New("node is not attached to a container")

// Transfer moves the payload of n into edit, keeping its absolute transform.
// It returns false when the payload is already there.
func Transfer(n *shape.Node, edit *scene.Container) (bool, error) {
	h := n.Handle()
	if h.Owner == nil {
		return false, fmt.Errorf("transfer %s: %w", n.UUID(), ErrDetached)
	}
	if h.Owner == edit {
		return false, nil
	}
	abs := n.Absolute()
	moved, err := scene.Move(h, edit)
	if err != nil {
		return false, fmt.Errorf("transfer %s: %w", n.UUID(), err)
	}
	n.SetHandle(moved)
	moved.Payload().Local = scene.Rebase(abs, edit)
	return true, nil
}

// Restore moves the payload of n back home and resets its local transform;
// the outer transform applies again there. It returns false when the payload
// is already home.
func Restore(n *shape.Node) (bool, error) {
	h := n.Handle()
	home := n.Home()
	if h.Owner == nil || home == nil {
		return false, fmt.Errorf("restore %s: %w", n.UUID(), ErrDetached)
	}
	if h.Owner == home {
		return false, nil
	}
	moved, err := scene.Move(h, home)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", n.UUID(), err)
	}
	n.SetHandle(moved)
	moved.Payload().Local = scene.Identity()
	return true, nil
}
