package albums

import (
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// PhotoInput references an uploaded file. Storage happens outside this service.
type PhotoInput struct {
	URL      string `json:"url" validate:"required,url"`
	Filename string `json:"filename" validate:"required,max=255"`
}

// FreelanceInput creates an album that is not tied to an order.
type FreelanceInput struct {
	Title         string       `json:"title" validate:"required,max=200"`
	Description   *string      `json:"description,omitempty"`
	ClientName    string       `json:"client_name" validate:"required,max=120"`
	ClientContact *string      `json:"client_contact,omitempty"`
	MaxSelection  int          `json:"max_selection" validate:"omitempty,min=1,max=500"`
	Photos        []PhotoInput `json:"photos" validate:"omitempty,dive"`
}

// SelectionItem is one photo the customer wants edited.
type SelectionItem struct {
	PhotoID uuid.UUID `json:"photo_id" validate:"required"`
	Note    string    `json:"note,omitempty" validate:"max=500"`
}

// PhotoView is the API projection of a photo.
type PhotoView struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	Filename     string    `json:"filename"`
	IsSelected   bool      `json:"is_selected"`
	CustomerNote *string   `json:"customer_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AlbumView is the album as seen by its owner, its customer or an admin.
type AlbumView struct {
	ID             uuid.UUID         `json:"id"`
	OrderID        *uuid.UUID        `json:"order_id,omitempty"`
	PhotographerID uuid.UUID         `json:"photographer_id"`
	CustomerID     *uuid.UUID        `json:"customer_id,omitempty"`
	ClientName     *string           `json:"client_name,omitempty"`
	ClientContact  *string           `json:"client_contact,omitempty"`
	Type           enums.AlbumType   `json:"type"`
	Title          string            `json:"title"`
	Description    *string           `json:"description,omitempty"`
	MaxSelection   int               `json:"max_selection"`
	Status         enums.AlbumStatus `json:"status"`
	ShareToken     *string           `json:"share_token,omitempty"`
	FinalizedAt    *time.Time        `json:"finalized_at,omitempty"`
	SelectedCount  int               `json:"selected_count"`
	Photos         []PhotoView       `json:"photos"`
	EditedPhotos   []PhotoView       `json:"edited_photos"`
	CreatedAt      time.Time         `json:"created_at"`
}

// PublicAlbumView is what a share link exposes. It carries no client data.
type PublicAlbumView struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	MaxSelection int               `json:"max_selection"`
	Status       enums.AlbumStatus `json:"status"`
	Photos       []PhotoView       `json:"photos"`
	EditedPhotos []PhotoView       `json:"edited_photos"`
}

// ShareLink is the public address of an album.
type ShareLink struct {
	Token string `json:"share_token"`
	URL   string `json:"share_link"`
}

func toPhotoView(p models.AlbumPhoto) PhotoView {
	return PhotoView{
		ID:           p.ID,
		URL:          p.URL,
		Filename:     p.Filename,
		IsSelected:   p.IsSelected,
		CustomerNote: p.CustomerNote,
		CreatedAt:    p.CreatedAt,
	}
}

func splitPhotos(photos []models.AlbumPhoto) (raw, edited []PhotoView, selected int) {
	raw = []PhotoView{}
	edited = []PhotoView{}
	for _, p := range photos {
		if p.Kind == enums.PhotoKindEdited {
			edited = append(edited, toPhotoView(p))
			continue
		}
		if p.IsSelected {
			selected++
		}
		raw = append(raw, toPhotoView(p))
	}
	return raw, edited, selected
}

func toView(album *models.Album, photos []models.AlbumPhoto) AlbumView {
	raw, edited, selected := splitPhotos(photos)
	return AlbumView{
		ID:             album.ID,
		OrderID:        album.OrderID,
		PhotographerID: album.PhotographerID,
		CustomerID:     album.CustomerID,
		ClientName:     album.ClientName,
		ClientContact:  album.ClientContact,
		Type:           album.Type,
		Title:          album.Title,
		Description:    album.Description,
		MaxSelection:   album.MaxSelection,
		Status:         album.Status,
		ShareToken:     album.ShareToken,
		FinalizedAt:    album.FinalizedAt,
		SelectedCount:  selected,
		Photos:         raw,
		EditedPhotos:   edited,
		CreatedAt:      album.CreatedAt,
	}
}

func toPublicView(album *models.Album, photos []models.AlbumPhoto) PublicAlbumView {
	raw, edited, _ := splitPhotos(photos)
	return PublicAlbumView{
		ID:           album.ID,
		Title:        album.Title,
		Description:  album.Description,
		MaxSelection: album.MaxSelection,
		Status:       album.Status,
		Photos:       raw,
		EditedPhotos: edited,
	}
}
