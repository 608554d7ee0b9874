package enums

import "slices"

// PhotoKind separates raw uploads from edited deliverables.
type PhotoKind string

const (
	PhotoKindRaw    PhotoKind = "raw"
	PhotoKindEdited PhotoKind = "edited"
)

var validPhotoKinds = []PhotoKind{
	PhotoKindRaw,
	PhotoKindEdited,
}

// IsValid reports whether the value is a known PhotoKind.
func (p PhotoKind) IsValid() bool { return slices.Contains(validPhotoKinds, p) }

// ParsePhotoKind converts raw input into a PhotoKind.
func ParsePhotoKind(value string) (PhotoKind, error) {
	return parseEnum(validPhotoKinds, value, "photo kind")
}
