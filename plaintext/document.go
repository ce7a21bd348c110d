package plaintext

import (
	"github.com/webframp/otalog/catalog"
)

// Target names the system/version pair whose history is published as plain
// text.
type Target struct {
	System  string
	Version string
}

// AviumTarget is the only pair the plain-text routes serve.
var AviumTarget = Target{System: "AviumUI", Version: "avium-16"}

// Document renders the target release train of a device. It returns false
// when the device, system or version is unknown or has no releases.
func (r Renderer) Document(store *catalog.Store, codename string, target Target) (string, bool) {
	v, ok := store.Version(codename, target.System, target.Version)
	if !ok {
		return "", false
	}
	return r.Render(v.Releases)
}
