package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SaveFailedNotice is shown to the customer when the profile copy could not be written.
const SaveFailedNotice = "we could not save this address to your profile; checkout continues with it"

// ProfileStore reads and writes the address columns of a user profile.
type ProfileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateAddressColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error
}

// SaveResult reports a best-effort profile write.
type SaveResult struct {
	Saved  bool   `json:"saved"`
	Notice string `json:"notice,omitempty"`
}

// Service persists checkout addresses to the customer profile and pre-fills them back.
type Service interface {
	Save(ctx context.Context, addr Address, userID uuid.UUID) SaveResult
	Load(ctx context.Context, userID uuid.UUID) (*Draft, error)
}

type service struct {
	store ProfileStore
	logg  *logger.Logger
}

func NewService(store ProfileStore, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store required")
	}
	return &service{store: store, logg: logg}, nil
}

// Save never fails the caller. Guests (uuid.Nil) are skipped silently.
func (s *service) Save(ctx context.Context, addr Address, userID uuid.UUID) SaveResult {
	if userID == uuid.Nil {
		return SaveResult{}
	}
	var complement any
	if addr.Complement != "" {
		complement = addr.Complement
	}
	columns := map[string]any{
		"address_street":       addr.Street,
		"address_number":       addr.Number,
		"address_complement":   complement,
		"address_neighborhood": addr.Neighborhood,
		"address_city":         addr.City,
		"address_state":        addr.State,
		"address_zip":          addr.ZipCode,
	}
	if err := s.store.UpdateAddressColumns(ctx, userID, columns); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, userID.String())
			logCtx = s.logg.WithField(logCtx, "error", err.Error())
			s.logg.Warn(logCtx, "address.profile_save_failed")
		}
		return SaveResult{Notice: SaveFailedNotice}
	}
	return SaveResult{Saved: true}
}

// Load returns nil when the profile has no address on file.
func (s *service) Load(ctx context.Context, userID uuid.UUID) (*Draft, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile address")
	}
	return FromProfile(user), nil
}

// FromProfile reads the structured columns, falling back to parsing a legacy
// single-line street value when only that column was written.
func FromProfile(user *models.User) *Draft {
	if user == nil {
		return nil
	}
	street := deref(user.AddressStreet)
	number := deref(user.AddressNumber)
	neighborhood := deref(user.AddressNeighborhood)
	if street == "" && number == "" && neighborhood == "" {
		return nil
	}

	var d Draft
	if number == "" && neighborhood == "" && deref(user.AddressComplement) == "" {
		d = ParseLegacy(street)
	} else {
		d = Draft{
			Street:       street,
			Number:       number,
			Complement:   deref(user.AddressComplement),
			Neighborhood: neighborhood,
		}
	}
	d.City = deref(user.AddressCity)
	d.State = deref(user.AddressState)
	d.ZipCode = deref(user.AddressZip)
	d = d.Normalize()
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
