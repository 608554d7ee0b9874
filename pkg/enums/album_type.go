package enums

import "slices"

type AlbumType string

const (
	AlbumTypeOrder     AlbumType = "order"
	AlbumTypeFreelance AlbumType = "freelance"
)

var validAlbumTypes = []AlbumType{
	AlbumTypeOrder,
	AlbumTypeFreelance,
}

// IsValid reports whether the value is a known AlbumType.
func (a AlbumType) IsValid() bool { return slices.Contains(validAlbumTypes, a) }

// ParseAlbumType converts raw input into a AlbumType.
func ParseAlbumType(value string) (AlbumType, error) {
	return parseEnum(validAlbumTypes, value, "album type")
}
