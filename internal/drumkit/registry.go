// Package drumkit is the static catalog of named drum kits. Each kit is
// an ordered list of drum-sound identifiers; the first registered kit is
// the default for games that never chose one.
package drumkit

// Kit is a named, ordered collection of drum sounds.
type Kit struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Drums []string `json:"drums"`
}

// kits is the registry, in registration order. The first entry is the
// default kit.
var kits = []Kit{
	{
		ID:   "west-african",
		Name: "West African",
		Drums: []string{
			"djembe",
			"dundun",
			"sangban",
			"kenkeni",
			"shekere",
			"krin",
		},
	},
	{
		ID:   "latin",
		Name: "Latin",
		Drums: []string{
			"conga",
			"bongo",
			"timbale",
			"clave",
			"guiro",
			"cowbell",
		},
	},
	{
		ID:   "electronic",
		Name: "Electronic",
		Drums: []string{
			"kick",
			"snare",
			"hihat",
			"clap",
			"tom",
			"rim",
		},
	},
}

// Kits returns all registered kits in registration order.
func Kits() []Kit {
	out := make([]Kit, len(kits))
	copy(out, kits)
	return out
}

// Default returns the first registered kit.
func Default() Kit {
	return kits[0]
}

// Lookup returns the kit with the given id.
func Lookup(id string) (Kit, bool) {
	for _, k := range kits {
		if k.ID == id {
			return k, true
		}
	}
	return Kit{}, false
}

// DrumsInKit returns the ordered drums of the kit with the given id.
// An unknown id falls back to the default kit.
func DrumsInKit(id string) []string {
	k, ok := Lookup(id)
	if !ok {
		k = Default()
	}
	out := make([]string, len(k.Drums))
	copy(out, k.Drums)
	return out
}
