package albums

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

const (
	defaultMaxSelection = 20
	shareTokenBytes     = 16
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DeliveryListener is told, inside the delivery transaction, that the edited
// photos of an order album were delivered.
type DeliveryListener interface {
	HandleAlbumDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service runs the album lifecycle from raw upload to final delivery.
type Service interface {
	UploadPhotos(ctx context.Context, actor auth.Actor, orderID uuid.UUID, files []PhotoInput) (*AlbumView, error)
	CreateFreelance(ctx context.Context, actor auth.Actor, input FreelanceInput) (*AlbumView, error)
	AddPhotos(ctx context.Context, actor auth.Actor, albumID uuid.UUID, files []PhotoInput) (*AlbumView, error)
	UpdateDetails(ctx context.Context, actor auth.Actor, albumID uuid.UUID, title string, description *string) (*AlbumView, error)

	SubmitSelection(ctx context.Context, actor auth.Actor, albumID uuid.UUID, items []SelectionItem) (*AlbumView, error)
	SubmitSelectionByToken(ctx context.Context, token string, items []SelectionItem) (*PublicAlbumView, error)
	Deliver(ctx context.Context, actor auth.Actor, albumID uuid.UUID, files []PhotoInput) (*AlbumView, error)

	CreateShareLink(ctx context.Context, actor auth.Actor, albumID uuid.UUID) (*ShareLink, error)
	GetByShareToken(ctx context.Context, token string) (*PublicAlbumView, error)
	RevokeShareLink(ctx context.Context, actor auth.Actor, albumID uuid.UUID) error

	DeletePhoto(ctx context.Context, actor auth.Actor, albumID, photoID uuid.UUID) error
	DeleteAlbum(ctx context.Context, actor auth.Actor, albumID uuid.UUID) error

	Get(ctx context.Context, actor auth.Actor, albumID uuid.UUID) (*AlbumView, error)
	GetByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*AlbumView, error)
	ListForPhotographer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[AlbumView], error)
	ListForCustomer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[AlbumView], error)
}

// ServiceParams groups the album dependencies. Listener, Metrics and Logger are optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Listener DeliveryListener
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	Booking  config.BookingConfig
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	listener     DeliveryListener
	metrics      *metrics.OrderMetrics
	logg         *logger.Logger
	maxSelection int
	shareBaseURL string
	now          func() time.Time
}

// NewService builds the album service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("albums repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	maxSelection := params.Booking.AlbumMaxSelection
	if maxSelection <= 0 {
		maxSelection = defaultMaxSelection
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		listener:     params.Listener,
		metrics:      params.Metrics,
		logg:         params.Logger,
		maxSelection: maxSelection,
		shareBaseURL: strings.TrimRight(params.Booking.PublicShareBaseURL, "/"),
		now:          time.Now,
	}, nil
}

// UploadPhotos appends raw photos to the album of an order, creating the
// album on first upload.
func (s *service) UploadPhotos(ctx context.Context, actor auth.Actor, orderID uuid.UUID, files []PhotoInput) (*AlbumView, error) {
	photos, err := s.photosFrom(files, enums.PhotoKindRaw)
	if err != nil {
		return nil, err
	}

	var result *AlbumView
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PhotographerID == nil || *order.PhotographerID != actor.UserID || actor.Role != enums.RolePhotographer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned photographer can upload photos")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled")
		}

		album, err := repo.FindByOrderIDForUpdate(ctx, order.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			album = s.orderAlbum(order)
			if err := repo.Create(ctx, album); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "album is being created concurrently")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create album")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
		}

		view, err := s.appendRaw(ctx, tx, actor, album, photos)
		if err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) orderAlbum(order *models.Order) *models.Album {
	orderID := order.ID
	customerID := order.CustomerID
	return &models.Album{
		ID:             uuid.New(),
		OrderID:        &orderID,
		PhotographerID: *order.PhotographerID,
		CustomerID:     &customerID,
		Type:           enums.AlbumTypeOrder,
		Title:          "Album " + order.OrderCode,
		MaxSelection:   s.maxSelection,
		Status:         enums.AlbumStatusDraft,
		CreatedAt:      s.now().UTC(),
	}
}

// CreateFreelance creates a standalone album for a client outside the platform.
func (s *service) CreateFreelance(ctx context.Context, actor auth.Actor, input FreelanceInput) (*AlbumView, error) {
	if actor.Role != enums.RolePhotographer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only photographers can create albums")
	}
	title := strings.TrimSpace(input.Title)
	clientName := strings.TrimSpace(input.ClientName)
	if title == "" || clientName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and client name are required")
	}
	maxSelection := input.MaxSelection
	if maxSelection <= 0 {
		maxSelection = s.maxSelection
	}
	var photos []models.AlbumPhoto
	if len(input.Photos) > 0 {
		var err error
		if photos, err = s.photosFrom(input.Photos, enums.PhotoKindRaw); err != nil {
			return nil, err
		}
	}

	album := &models.Album{
		ID:             uuid.New(),
		PhotographerID: actor.UserID,
		ClientName:     &clientName,
		ClientContact:  input.ClientContact,
		Type:           enums.AlbumTypeFreelance,
		Title:          title,
		Description:    input.Description,
		MaxSelection:   maxSelection,
		Status:         enums.AlbumStatusDraft,
		CreatedAt:      s.now().UTC(),
	}
	var result *AlbumView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, album); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create album")
		}
		if len(photos) == 0 {
			view := toView(album, nil)
			result = &view
			return nil
		}
		view, err := s.appendRaw(ctx, tx, actor, album, photos)
		if err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddPhotos appends raw photos to an existing album.
func (s *service) AddPhotos(ctx context.Context, actor auth.Actor, albumID uuid.UUID, files []PhotoInput) (*AlbumView, error) {
	photos, err := s.photosFrom(files, enums.PhotoKindRaw)
	if err != nil {
		return nil, err
	}
	var result *AlbumView
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		album, err := s.lockOwned(ctx, s.repo.WithTx(tx), actor, albumID)
		if err != nil {
			return err
		}
		view, err := s.appendRaw(ctx, tx, actor, album, photos)
		if err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// appendRaw stores raw photos on a locked album and opens it to the customer.
func (s *service) appendRaw(ctx context.Context, tx *gorm.DB, actor auth.Actor, album *models.Album, photos []models.AlbumPhoto) (*AlbumView, error) {
	if album.Status == enums.AlbumStatusFinalized {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "album is already finalized")
	}
	repo := s.repo.WithTx(tx)
	for i := range photos {
		photos[i].AlbumID = album.ID
	}
	if err := repo.AddPhotos(ctx, photos); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store photos")
	}
	if album.Status == enums.AlbumStatusDraft {
		if err := repo.Update(ctx, album.ID, map[string]any{"status": enums.AlbumStatusSentToCustomer}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update album status")
		}
		album.Status = enums.AlbumStatusSentToCustomer
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAlbumPhotosUploaded,
		AggregateType: enums.AggregateAlbum,
		AggregateID:   album.ID,
		Actor:         actorRef(actor),
		Data: payloads.AlbumPhotosUploadedEvent{
			AlbumID:        album.ID,
			OrderID:        album.OrderID,
			CustomerID:     album.CustomerID,
			PhotographerID: album.PhotographerID,
			Count:          len(photos),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit photos uploaded event")
	}
	return s.viewOf(ctx, repo, album)
}

func (s *service) UpdateDetails(ctx context.Context, actor auth.Actor, albumID uuid.UUID, title string, description *string) (*AlbumView, error) {
	updates := map[string]any{}
	if title = strings.TrimSpace(title); title != "" {
		updates["title"] = title
	}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	var result *AlbumView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		album, err := s.lockOwned(ctx, repo, actor, albumID)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, album.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update album")
		}
		reloaded, err := repo.FindByID(ctx, album.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload album")
		}
		result, err = s.viewOf(ctx, repo, reloaded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitSelection replaces the customer's pick of raw photos.
func (s *service) SubmitSelection(ctx context.Context, actor auth.Actor, albumID uuid.UUID, items []SelectionItem) (*AlbumView, error) {
	var result *AlbumView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		album, err := repo.FindByIDForUpdate(ctx, albumID)
		if err != nil {
			return albumNotFoundOr(err)
		}
		if !canSelect(album, actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "album does not belong to the caller")
		}
		if err := s.replaceSelection(ctx, tx, actor, album, items, false); err != nil {
			return err
		}
		result, err = s.viewOf(ctx, repo, album)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitSelectionByToken lets a client pick photos through a share link.
func (s *service) SubmitSelectionByToken(ctx context.Context, token string, items []SelectionItem) (*PublicAlbumView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAlbumNotFound, "album not found")
	}
	var result *PublicAlbumView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shared, err := repo.FindByShareToken(ctx, token)
		if err != nil {
			return albumNotFoundOr(err)
		}
		album, err := repo.FindByIDForUpdate(ctx, shared.ID)
		if err != nil {
			return albumNotFoundOr(err)
		}
		if album.ShareToken == nil || *album.ShareToken != token {
			return pkgerrors.New(pkgerrors.CodeAlbumNotFound, "album not found")
		}
		if err := s.replaceSelection(ctx, tx, auth.Actor{Role: enums.RoleCustomer}, album, items, true); err != nil {
			return err
		}
		photos, err := repo.ListPhotos(ctx, album.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list photos")
		}
		view := toPublicView(album, photos)
		result = &view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replaceSelection runs on a locked album. The whole selection is replaced.
func (s *service) replaceSelection(ctx context.Context, tx *gorm.DB, actor auth.Actor, album *models.Album, items []SelectionItem, viaShare bool) error {
	if album.Status == enums.AlbumStatusFinalized {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "selection is locked once the album is finalized")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "select at least one photo")
	}

	notes := make(map[uuid.UUID]string, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := notes[item.PhotoID]; seen {
			continue
		}
		notes[item.PhotoID] = strings.TrimSpace(item.Note)
		ids = append(ids, item.PhotoID)
	}
	if len(ids) > album.MaxSelection {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d photos can be selected", album.MaxSelection)).
			WithDetails(map[string]any{"max_selection": album.MaxSelection, "selected": len(ids)})
	}

	repo := s.repo.WithTx(tx)
	found, err := repo.CountRawPhotos(ctx, album.ID, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check selected photos")
	}
	if found != int64(len(ids)) {
		return pkgerrors.New(pkgerrors.CodeInvalidPhotoReference, "selection references photos outside this album")
	}

	if err := repo.ClearSelection(ctx, album.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear selection")
	}
	for _, id := range ids {
		var note *string
		if n := notes[id]; n != "" {
			note = &n
		}
		if err := repo.SelectPhoto(ctx, album.ID, id, note); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select photo")
		}
	}
	if err := repo.Update(ctx, album.ID, map[string]any{"status": enums.AlbumStatusSelectionCompleted}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update album status")
	}
	album.Status = enums.AlbumStatusSelectionCompleted

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAlbumSelectionSubmitted,
		AggregateType: enums.AggregateAlbum,
		AggregateID:   album.ID,
		Actor:         actorRef(actor),
		Data: payloads.AlbumSelectionSubmittedEvent{
			AlbumID:        album.ID,
			OrderID:        album.OrderID,
			PhotographerID: album.PhotographerID,
			SelectedCount:  len(ids),
			ViaShareLink:   viaShare,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit selection event")
	}
	return nil
}

// Deliver stores the edited photos and finalizes the album. For order albums
// the delivery listener runs in the same transaction.
func (s *service) Deliver(ctx context.Context, actor auth.Actor, albumID uuid.UUID, files []PhotoInput) (*AlbumView, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyDelivery, "at least one edited photo is required")
	}
	photos, err := s.photosFrom(files, enums.PhotoKindEdited)
	if err != nil {
		return nil, err
	}

	var result *AlbumView
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		album, err := s.lockOwned(ctx, repo, actor, albumID)
		if err != nil {
			return err
		}
		if album.Type == enums.AlbumTypeOrder &&
			album.Status != enums.AlbumStatusSelectionCompleted &&
			album.Status != enums.AlbumStatusFinalized {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "the customer has not submitted a selection yet").
				WithDetails(map[string]any{"status": album.Status})
		}

		for i := range photos {
			photos[i].AlbumID = album.ID
		}
		if err := repo.AddPhotos(ctx, photos); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store edited photos")
		}
		updates := map[string]any{"status": enums.AlbumStatusFinalized}
		if album.FinalizedAt == nil {
			now := s.now().UTC()
			updates["finalized_at"] = now
			album.FinalizedAt = &now
		}
		if err := repo.Update(ctx, album.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize album")
		}
		album.Status = enums.AlbumStatusFinalized

		// The order must already be processing. Any other status fails the
		// listener and rolls the delivery back; delivered and completed are no-ops.
		if album.OrderID != nil && s.listener != nil {
			if err := s.listener.HandleAlbumDelivered(ctx, tx, *album.OrderID); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAlbumDelivered,
			AggregateType: enums.AggregateAlbum,
			AggregateID:   album.ID,
			Actor:         actorRef(actor),
			Data: payloads.AlbumDeliveredEvent{
				AlbumID:        album.ID,
				OrderID:        album.OrderID,
				CustomerID:     album.CustomerID,
				PhotographerID: album.PhotographerID,
				EditedCount:    len(photos),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit album delivered event")
		}
		result, err = s.viewOf(ctx, repo, album)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAlbumDelivery()
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"album_id":     albumID.String(),
			"edited_count": len(photos),
		})
		if result.OrderID != nil {
			logCtx = s.logg.WithOrderID(logCtx, result.OrderID.String())
		}
		s.logg.Info(logCtx, "album delivered")
	}
	return result, nil
}

// CreateShareLink returns the album's public link, minting a token on first use.
func (s *service) CreateShareLink(ctx context.Context, actor auth.Actor, albumID uuid.UUID) (*ShareLink, error) {
	var token string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		album, err := s.lockOwned(ctx, repo, actor, albumID)
		if err != nil {
			return err
		}
		if album.ShareToken != nil && *album.ShareToken != "" {
			token = *album.ShareToken
			return nil
		}
		minted, err := newShareToken()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate share token")
		}
		if err := repo.Update(ctx, album.ID, map[string]any{"share_token": minted}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store share token")
		}
		token = minted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ShareLink{Token: token, URL: s.shareBaseURL + "/" + token}, nil
}

func (s *service) GetByShareToken(ctx context.Context, token string) (*PublicAlbumView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAlbumNotFound, "album not found")
	}
	album, err := s.repo.FindByShareToken(ctx, token)
	if err != nil {
		return nil, albumNotFoundOr(err)
	}
	photos, err := s.repo.ListPhotos(ctx, album.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list photos")
	}
	view := toPublicView(album, photos)
	return &view, nil
}

func (s *service) RevokeShareLink(ctx context.Context, actor auth.Actor, albumID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		album, err := s.lockOwned(ctx, repo, actor, albumID)
		if err != nil {
			return err
		}
		if album.ShareToken == nil {
			return nil
		}
		if err := repo.Update(ctx, album.ID, map[string]any{"share_token": nil}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke share token")
		}
		return nil
	})
}

func (s *service) DeletePhoto(ctx context.Context, actor auth.Actor, albumID, photoID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.lockOwned(ctx, repo, actor, albumID); err != nil {
			return err
		}
		deleted, err := repo.DeletePhoto(ctx, albumID, photoID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete photo")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil
	})
}

func (s *service) DeleteAlbum(ctx context.Context, actor auth.Actor, albumID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.lockOwned(ctx, repo, actor, albumID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, albumID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete album")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor auth.Actor, albumID uuid.UUID) (*AlbumView, error) {
	album, err := s.repo.FindByID(ctx, albumID)
	if err != nil {
		return nil, albumNotFoundOr(err)
	}
	if !canView(album, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "album does not belong to the caller")
	}
	return s.viewOf(ctx, s.repo, album)
}

func (s *service) GetByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*AlbumView, error) {
	album, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, albumNotFoundOr(err)
	}
	if !canView(album, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "album does not belong to the caller")
	}
	return s.viewOf(ctx, s.repo, album)
}

func (s *service) ListForPhotographer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[AlbumView], error) {
	if actor.Role != enums.RolePhotographer {
		return pagination.Page[AlbumView]{}, pkgerrors.New(pkgerrors.CodeForbidden, "only photographers own albums")
	}
	return s.list(ctx, params, func() ([]models.Album, error) {
		return s.repo.ListByPhotographer(ctx, actor.UserID, params)
	})
}

func (s *service) ListForCustomer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[AlbumView], error) {
	return s.list(ctx, params, func() ([]models.Album, error) {
		return s.repo.ListByCustomer(ctx, actor.UserID, params)
	})
}

func (s *service) list(ctx context.Context, params pagination.Params, fetch func() ([]models.Album, error)) (pagination.Page[AlbumView], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[AlbumView]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := fetch()
	if err != nil {
		return pagination.Page[AlbumView]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list albums")
	}
	views := make([]AlbumView, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i], rows[i].Photos))
	}
	return pagination.BuildPage(views, params.Limit, func(v AlbumView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	}), nil
}

// lockOwned locks the album and checks the caller is its photographer.
func (s *service) lockOwned(ctx context.Context, repo Repository, actor auth.Actor, albumID uuid.UUID) (*models.Album, error) {
	album, err := repo.FindByIDForUpdate(ctx, albumID)
	if err != nil {
		return nil, albumNotFoundOr(err)
	}
	if actor.Role != enums.RolePhotographer || album.PhotographerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the album's photographer can change it")
	}
	return album, nil
}

func (s *service) viewOf(ctx context.Context, repo Repository, album *models.Album) (*AlbumView, error) {
	photos, err := repo.ListPhotos(ctx, album.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list photos")
	}
	view := toView(album, photos)
	return &view, nil
}

func (s *service) photosFrom(files []PhotoInput, kind enums.PhotoKind) ([]models.AlbumPhoto, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one photo is required")
	}
	now := s.now().UTC()
	photos := make([]models.AlbumPhoto, 0, len(files))
	for i, f := range files {
		url := strings.TrimSpace(f.URL)
		if url == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo url is required").
				WithDetails(map[string]any{"index": i})
		}
		name := strings.TrimSpace(f.Filename)
		if name == "" {
			name = url[strings.LastIndex(url, "/")+1:]
		}
		photos = append(photos, models.AlbumPhoto{
			ID:        uuid.New(),
			Kind:      kind,
			URL:       url,
			Filename:  name,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return photos, nil
}

func canView(album *models.Album, actor auth.Actor) bool {
	if actor.IsStaff() {
		return true
	}
	if actor.Role == enums.RolePhotographer && album.PhotographerID == actor.UserID {
		return true
	}
	return album.CustomerID != nil && *album.CustomerID == actor.UserID
}

// canSelect admits only the order's customer. Share-token selections bypass it.
func canSelect(album *models.Album, actor auth.Actor) bool {
	return actor.Role == enums.RoleCustomer && album.CustomerID != nil && *album.CustomerID == actor.UserID
}

func albumNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeAlbumNotFound, "album not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserIDPtr(), Role: actor.Role}
}

func newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
