package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

const (
	// KeySeparator joins the category, subcategory and name of a key.
	KeySeparator = "/"
	// SubArtifactSeparator prefixes the optional sub-artifact selector.
	SubArtifactSeparator = ":"
)

// CanonicalKey identifies one loadable unit. It is comparable and used directly as a map key.
// Keys that differ only in SubArtifact address independent cache slots.
type CanonicalKey struct {
	category    InternedString
	subcategory InternedString
	name        InternedString
	subArtifact InternedString
}

// Resolve builds the canonical key for an artifact. Pass an empty subArtifact for the whole artifact.
func Resolve(name, category, subcategory, subArtifact string) (CanonicalKey, error) {
	for _, part := range []struct {
		field, value string
		required     bool
	}{
		{"category", category, true},
		{"subcategory", subcategory, true},
		{"name", name, true},
		{"sub_artifact", subArtifact, false},
	} {
		if part.value == "" {
			if part.required {
				return CanonicalKey{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "empty "+part.field), "field", part.field)
			}
			continue
		}
		if strings.ContainsAny(part.value, KeySeparator+SubArtifactSeparator) {
			err := zerr.With(zerr.Wrap(ErrInvalidIdentifier, "reserved separator in "+part.field), "field", part.field)
			return CanonicalKey{}, zerr.With(err, "value", part.value)
		}
	}

	key := CanonicalKey{
		category:    NewInternedString(category),
		subcategory: NewInternedString(subcategory),
		name:        NewInternedString(name),
	}
	if subArtifact != "" {
		key.subArtifact = NewInternedString(subArtifact)
	}
	return key, nil
}

// MustResolve is Resolve for static inputs; it panics on invalid components.
func MustResolve(name, category, subcategory, subArtifact string) CanonicalKey {
	key, err := Resolve(name, category, subcategory, subArtifact)
	if err != nil {
		panic(err)
	}
	return key
}

// ParseKey parses the "category/subcategory/name[:sub]" form produced by String.
func ParseKey(s string) (CanonicalKey, error) {
	base, sub, _ := strings.Cut(s, SubArtifactSeparator)
	parts := strings.Split(base, KeySeparator)
	if len(parts) != 3 {
		return CanonicalKey{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "malformed key"), "key", s)
	}
	return Resolve(parts[2], parts[0], parts[1], sub)
}

// Category returns the key's category, e.g. the base family an artifact targets.
func (k CanonicalKey) Category() string { return k.category.String() }

// Subcategory returns the key's artifact type within the category.
func (k CanonicalKey) Subcategory() string { return k.subcategory.String() }

// Name returns the key's symbolic name.
func (k CanonicalKey) Name() string { return k.name.String() }

// SubArtifact returns the sub-artifact selector, or "" for the whole artifact.
func (k CanonicalKey) SubArtifact() string { return k.subArtifact.String() }

// IsZero reports whether the key was never resolved.
func (k CanonicalKey) IsZero() bool { return k == CanonicalKey{} }

// Base returns the key without its sub-artifact selector.
func (k CanonicalKey) Base() CanonicalKey {
	k.subArtifact = InternedString{}
	return k
}

// WithSubArtifact returns a copy of the key selecting the given sub-artifact.
func (k CanonicalKey) WithSubArtifact(sub string) (CanonicalKey, error) {
	return Resolve(k.Name(), k.Category(), k.Subcategory(), sub)
}

// String renders the key as "category/subcategory/name", with ":sub" appended when set.
func (k CanonicalKey) String() string {
	if k.IsZero() {
		return ""
	}
	s := k.Category() + KeySeparator + k.Subcategory() + KeySeparator + k.Name()
	if !k.subArtifact.IsZero() {
		s += SubArtifactSeparator + k.SubArtifact()
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (k CanonicalKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CanonicalKey) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Compare orders keys by their string form.
func (k CanonicalKey) Compare(other CanonicalKey) int {
	return strings.Compare(k.String(), other.String())
}
